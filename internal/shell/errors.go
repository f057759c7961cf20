package shell

import "errors"

var (
	// ErrEmptyLine is returned by ParseLine for a line with no tokens.
	ErrEmptyLine = errors.New("shell: empty command line")
	// ErrDanglingPipe is returned when a line ends in a pipe operator
	// with nothing following it.
	ErrDanglingPipe = errors.New("shell: pipe with no following command")
	// ErrMissingRedirectTarget is returned when '>' appears with no
	// filename token after it.
	ErrMissingRedirectTarget = errors.New("shell: redirection with no target file")
	// ErrUnknownBuiltin names a verb not registered as a builtin.
	// Dispatch does not return it: it reports that case as handled ==
	// false with a nil error.
	ErrUnknownBuiltin = errors.New("shell: unknown builtin command")
	// ErrNoSuchUser is returned by a Directory's Send when the named
	// session id does not exist.
	ErrNoSuchUser = errors.New("shell: no such user")
	// ErrSessionFull is returned by a Registry when all ids are in use.
	ErrSessionFull = errors.New("shell: maximum session count reached")
	// ErrPipeEdgeBusy is returned by a UserPipeRegistry when a second
	// writer tries to open an edge that already has a live writer.
	ErrPipeEdgeBusy = errors.New("shell: user-pipe edge already open")
	// ErrPipeEdgeMissing is returned by a UserPipeRegistry's OpenIn when
	// no sender has opened the src->dst edge yet.
	ErrPipeEdgeMissing = errors.New("shell: user-pipe edge does not exist")
)
