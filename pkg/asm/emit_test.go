package asm_test

import (
	"bytes"
	"strings"
	"testing"

	"vmforge.dev/n2t/pkg/asm"
)

func TestEmitterAInstructions(t *testing.T) {
	var buf bytes.Buffer
	e := asm.NewEmitter(&buf)

	if err := e.EmitA("SP"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := e.EmitA("17"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := "@SP\n@17\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
	if e.Lines() != 2 {
		t.Errorf("Lines() = %d, want 2", e.Lines())
	}
}

func TestEmitterCInstructions(t *testing.T) {
	var buf bytes.Buffer
	e := asm.NewEmitter(&buf)

	test := func(dest, comp, jump, want string) {
		t.Helper()
		buf.Reset()
		if err := e.EmitC(dest, comp, jump); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		e.Flush()
		if got := strings.TrimSuffix(buf.String(), "\n"); got != want {
			t.Errorf("EmitC(%q, %q, %q) = %q, want %q", dest, comp, jump, got, want)
		}
	}

	test("M", "D+1", "", "M=D+1")
	test("", "D", "JGT", "D;JGT")
	test("", "0", "JMP", "0;JMP")
}

func TestEmitterLabelsAndComments(t *testing.T) {
	var buf bytes.Buffer
	e := asm.NewEmitter(&buf)

	e.EmitLabel("LOOP")
	e.EmitComment("push constant 7")
	e.Flush()

	want := "(LOOP)\n// push constant 7\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
