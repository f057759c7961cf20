// Package debugdump prints full structural dumps of shell values at
// debug log level, for the kind of ad-hoc inspection that printf-style
// %+v formatting doesn't give you on deeply nested session state.
package debugdump

import (
	"context"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
)

var config = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Value logs a full structural dump of v at debug level under msg, if
// and only if logger has debug logging enabled. Callers pass arbitrary
// session/stage/pipe-table values; the dump is skipped entirely (no
// Sdump call at all) when debug logging is off, since Sdump itself is
// not cheap.
func Value(logger *slog.Logger, msg string, v any) {
	if logger == nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	logger.Debug(msg, "dump", config.Sdump(v))
}
