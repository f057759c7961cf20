package shell

import "testing"

func TestParseLineOrdinaryPipe(t *testing.T) {
	stages, err := ParseLine("ls |cat")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[0].PipeOut != PipeOrdinary {
		t.Errorf("stage 0 PipeOut = %v, want PipeOrdinary", stages[0].PipeOut)
	}
	if stages[1].PipeOut != PipeNone {
		t.Errorf("stage 1 PipeOut = %v, want PipeNone", stages[1].PipeOut)
	}
	if stages[1].Args[0] != "cat" {
		t.Errorf("stage 1 args = %v, want [cat]", stages[1].Args)
	}
}

func TestParseLineNumberedPipe(t *testing.T) {
	stages, err := ParseLine("number |2")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(stages) != 1 {
		t.Fatalf("expected 1 stage, got %d", len(stages))
	}
	if stages[0].PipeOut != PipeNumbered || stages[0].PipeNumber != 2 {
		t.Errorf("stage 0 = %+v, want PipeNumbered(2)", stages[0])
	}
}

func TestParseLineMergeStderr(t *testing.T) {
	stages, err := ParseLine("echoerr ! cat > out.txt")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if !stages[0].MergeStderr {
		t.Errorf("stage 0 MergeStderr = false, want true")
	}
	if stages[1].RedirectFile != "out.txt" {
		t.Errorf("stage 1 RedirectFile = %q, want out.txt", stages[1].RedirectFile)
	}
}

func TestParseLineUserPipeTokens(t *testing.T) {
	stages, err := ParseLine("number >2")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(stages) != 1 || stages[0].UserPipeOutTo != 2 {
		t.Fatalf("stages = %+v, want UserPipeOutTo=2", stages)
	}

	stages, err = ParseLine("cat <1")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(stages) != 1 || stages[0].UserPipeInFrom != 1 {
		t.Fatalf("stages = %+v, want UserPipeInFrom=1", stages)
	}
}

func TestParseLineEmpty(t *testing.T) {
	if _, err := ParseLine(""); err != ErrEmptyLine {
		t.Errorf("ParseLine(\"\") error = %v, want ErrEmptyLine", err)
	}
	if _, err := ParseLine("   "); err != ErrEmptyLine {
		t.Errorf("ParseLine(spaces) error = %v, want ErrEmptyLine", err)
	}
}

func TestParseLineDanglingPipe(t *testing.T) {
	if _, err := ParseLine("ls |"); err != ErrDanglingPipe {
		t.Errorf("ParseLine(\"ls |\") error = %v, want ErrDanglingPipe", err)
	}
}

func TestParseLineMissingRedirectTarget(t *testing.T) {
	if _, err := ParseLine("ls >"); err != ErrMissingRedirectTarget {
		t.Errorf("ParseLine(\"ls >\") error = %v, want ErrMissingRedirectTarget", err)
	}
}
