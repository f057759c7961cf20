package shellmp

import (
	"io"
	"os"
	"testing"
)

func TestFifoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	reg, err := NewFifoUserPipeRegistry()
	if err != nil {
		t.Fatalf("NewFifoUserPipeRegistry: %v", err)
	}

	notified := make(chan struct{}, 1)
	go func() {
		w, err := reg.CreateAndOpenWriter(1, 2, func() error {
			notified <- struct{}{}
			return nil
		})
		if err != nil {
			t.Error(err)
			return
		}
		defer w.Close()
		w.Write([]byte("hi"))
	}()

	<-notified
	r, err := reg.OpenReaderBlocking(1, 2)
	if err != nil {
		t.Fatalf("OpenReaderBlocking: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}
