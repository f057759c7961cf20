package server

import "errors"

var errNoHandler = errors.New("server: SetHandler must be called before Run")
