package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// TrySend implements the '>N' user-pipe-out token: it opens the
// src->dst edge on pipes and reports the exact broadcast/error text
// spec'd for both outcomes. On any error it returns a /dev/null writer
// so the stage still runs with its output discarded, per the rule that
// a missing/duplicate user-pipe substitutes /dev/null rather than
// aborting the line.
func TrySend(pipes UserPipeRegistry, dir Directory, src, dst int, rawLine string, caller io.Writer) io.WriteCloser {
	dstName, dstOK := dir.NameOf(dst)
	if !dstOK {
		fmt.Fprintf(caller, "*** Error: user #%d does not exist yet. ***\n", dst)
		return devNullWriter()
	}

	w, err := pipes.OpenOut(src, dst)
	if err != nil {
		if errors.Is(err, ErrPipeEdgeBusy) {
			fmt.Fprintf(caller, "*** Error: the pipe #%d->#%d already exists. ***\n", src, dst)
		}
		return devNullWriter()
	}

	srcName, _ := dir.NameOf(src)
	dir.Broadcast(fmt.Sprintf("*** %s (#%d) just piped '%s' to %s (#%d) ***\n", srcName, src, rawLine, dstName, dst))
	return w
}

// TryRecv implements the '<N' user-pipe-in token: it opens the
// src->dst edge for reading, reports the exact error text for a
// missing sender or missing edge, and otherwise broadcasts the
// delivery notice and returns the edge's read end. On error it returns
// a /dev/null reader so the stage still runs.
func TryRecv(pipes UserPipeRegistry, dir Directory, src, dst int, rawLine string, caller io.Writer) io.ReadCloser {
	if _, ok := dir.NameOf(src); !ok {
		fmt.Fprintf(caller, "*** Error: user #%d does not exist yet. ***\n", src)
		return devNullReader()
	}

	r, err := pipes.OpenIn(src, dst)
	if err != nil {
		fmt.Fprintf(caller, "*** Error: the pipe #%d->#%d does not exist yet. ***\n", src, dst)
		return devNullReader()
	}

	srcName, _ := dir.NameOf(src)
	dstName, _ := dir.NameOf(dst)
	dir.Broadcast(fmt.Sprintf("*** %s (#%d) just received from %s (#%d) by '%s' ***\n", dstName, dst, srcName, src, rawLine))
	return r
}

func devNullWriter() io.WriteCloser {
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nopWriteCloser{io.Discard}
	}
	return f
}

func devNullReader() io.ReadCloser {
	f, err := os.Open(os.DevNull)
	if err != nil {
		return io.NopCloser(strictEmptyReader{})
	}
	return f
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type strictEmptyReader struct{}

func (strictEmptyReader) Read([]byte) (int, error) { return 0, io.EOF }
