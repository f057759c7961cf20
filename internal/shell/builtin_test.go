package shell

import (
	"bytes"
	"testing"
)

func TestDispatchSetenvUsage(t *testing.T) {
	sess := NewSession(1)
	var buf bytes.Buffer

	handled, _, err := Dispatch(&buf, nil, sess, "", "setenv", []string{"ONLY_ONE"}, "setenv ONLY_ONE")
	if err != nil || !handled {
		t.Fatalf("Dispatch: handled=%v err=%v", handled, err)
	}
	if buf.String() != "Usage: setenv [var] [value]\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDispatchSetenvAndPrintenv(t *testing.T) {
	sess := NewSession(1)
	var buf bytes.Buffer

	Dispatch(&buf, nil, sess, "", "setenv", []string{"FOO", "bar"}, "setenv FOO bar")
	buf.Reset()
	Dispatch(&buf, nil, sess, "", "printenv", []string{"FOO"}, "printenv FOO")

	if buf.String() != "bar\n" {
		t.Errorf("printenv output = %q, want %q", buf.String(), "bar\n")
	}
}

func TestDispatchPrintenvUnknownIsSilent(t *testing.T) {
	sess := NewSession(1)
	var buf bytes.Buffer

	Dispatch(&buf, nil, sess, "", "printenv", []string{"NOPE"}, "printenv NOPE")
	if buf.Len() != 0 {
		t.Errorf("expected no output for unknown var, got %q", buf.String())
	}
}

func TestDispatchExitBroadcasts(t *testing.T) {
	r := NewRegistry(2)
	sess, out, _ := r.Allocate("1.2.3.4:5")
	sess.SetName("bob")
	var buf bytes.Buffer

	_, outcome, _ := Dispatch(&buf, r, sess, "", "exit", nil, "exit")
	if !outcome.Terminate {
		t.Error("exit should terminate the session")
	}

	select {
	case msg := <-out:
		if msg != "*** User 'bob' left. ***\n" {
			t.Errorf("broadcast = %q", msg)
		}
	default:
		t.Error("expected exit to broadcast to the departing session's own outbox too")
	}
}

func TestDispatchTellMissingUser(t *testing.T) {
	r := NewRegistry(2)
	sess, _, _ := r.Allocate("1.2.3.4:5")
	sess.SetName("alice")
	var buf bytes.Buffer

	Dispatch(&buf, r, sess, "", "tell", []string{"9", "hi"}, "tell 9 hi")
	if buf.String() != "*** Error: user #9 does not exist yet. ***\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDispatchTellDeliversMessage(t *testing.T) {
	r := NewRegistry(2)
	sender, _, _ := r.Allocate("1.1.1.1:1")
	sender.SetName("alice")
	_, out2, _ := r.Allocate("2.2.2.2:2")
	var buf bytes.Buffer

	Dispatch(&buf, r, sender, "", "tell", []string{"2", "hi", "there"}, "tell 2 hi there")

	msg := <-out2
	if msg != "*** alice told you ***: hi there\n" {
		t.Errorf("delivered = %q", msg)
	}
}

func TestDispatchNameRejectsDuplicate(t *testing.T) {
	r := NewRegistry(2)
	s1, _, _ := r.Allocate("1.1.1.1:1")
	s1.SetName("alice")
	s2, _, _ := r.Allocate("2.2.2.2:2")
	var buf bytes.Buffer

	Dispatch(&buf, r, s2, "2.2.2.2:2", "name", []string{"alice"}, "name alice")
	if buf.String() != "*** User 'alice' already exists. ***\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDispatchUnknownVerbNotHandled(t *testing.T) {
	sess := NewSession(1)
	var buf bytes.Buffer

	handled, _, _ := Dispatch(&buf, nil, sess, "", "ls", nil, "ls")
	if handled {
		t.Error("ls should not be recognized as a builtin")
	}
}
