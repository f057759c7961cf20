package shell

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// stubDirectory satisfies Directory for tests that don't exercise chat
// builtins.
type stubDirectory struct{}

func (stubDirectory) Who(int) []string        { return nil }
func (stubDirectory) Send(int, string) error  { return ErrNoSuchUser }
func (stubDirectory) Broadcast(string)        {}
func (stubDirectory) NameTaken(string) bool   { return false }
func (stubDirectory) NameOf(int) (string, bool) { return "", false }

func newTestSession() *Session {
	s := NewSession(1)
	s.Setenv("PATH", "/bin:/usr/bin")
	return s
}

func TestRunLineOrdinaryPipe(t *testing.T) {
	sess := newTestSession()
	var out bytes.Buffer
	stdin := strings.NewReader("")

	RunLine(sess, stubDirectory{}, NewMemUserPipeRegistry(), "", stdin, &out, "echo a |cat")

	if out.String() != "a\n" {
		t.Errorf("output = %q, want %q", out.String(), "a\n")
	}
}

func TestRunLineUnknownCommand(t *testing.T) {
	sess := newTestSession()
	var out bytes.Buffer
	stdin := strings.NewReader("")

	RunLine(sess, stubDirectory{}, NewMemUserPipeRegistry(), "", stdin, &out, "definitely-not-a-real-binary")

	if !strings.Contains(out.String(), "Unknown command: [definitely-not-a-real-binary].") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunLineEmptyLineIsNoop(t *testing.T) {
	sess := newTestSession()
	var out bytes.Buffer
	stdin := strings.NewReader("")

	RunLine(sess, stubDirectory{}, NewMemUserPipeRegistry(), "", stdin, &out, "   ")

	if out.Len() != 0 {
		t.Errorf("expected no output for an empty line, got %q", out.String())
	}
}

func TestRunLineFileRedirect(t *testing.T) {
	sess := newTestSession()
	dir := t.TempDir()
	outFile := dir + "/out.txt"
	var out bytes.Buffer
	stdin := strings.NewReader("")

	RunLine(sess, stubDirectory{}, NewMemUserPipeRegistry(), "", stdin, &out, "echo hi > "+outFile)

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("reading redirected file: %v", err)
	}
	if string(data) != "hi\n" {
		t.Errorf("file contents = %q, want %q", data, "hi\n")
	}
}

// TestRunLineFileRedirectWithMergedNumberedPipe exercises a stage
// carrying both a file_redirect and a numbered pipe_out with
// merge_stderr: stdout must still go to the file, but stderr must
// still be delayed into the numbered pipe rather than silently
// dropped into the file alongside stdout.
func TestRunLineFileRedirectWithMergedNumberedPipe(t *testing.T) {
	sess := newTestSession()
	dir := t.TempDir()
	outFile := dir + "/out.txt"
	script := dir + "/emit.sh"
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho out\necho err 1>&2\n"), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	pipes := NewMemUserPipeRegistry()
	var out bytes.Buffer
	stdin := strings.NewReader("")

	RunLine(sess, stubDirectory{}, pipes, "", stdin, &out, script+" > "+outFile+" !3 cat")

	// The third later line would claim the !3 pipe itself, so run two
	// lines and apply the third line's tick by hand before claiming.
	for i := 0; i < 2; i++ {
		RunLine(sess, stubDirectory{}, pipes, "", stdin, &out, "true")
	}
	sess.Pipes().Tick()

	r, ok := sess.Pipes().Claim()
	if !ok {
		t.Fatal("numbered pipe #3 was never registered despite file_redirect overriding stdout")
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading numbered pipe: %v", err)
	}
	if string(got) != "err\n" {
		t.Errorf("numbered pipe contents = %q, want %q", got, "err\n")
	}

	stdoutData, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("reading redirected file: %v", err)
	}
	if string(stdoutData) != "out\n" {
		t.Errorf("redirected file contents = %q, want %q", stdoutData, "out\n")
	}
}
