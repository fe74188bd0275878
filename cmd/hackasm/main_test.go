package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHandlerTranslatesSimpleProgram(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Foo.asm")
	output := filepath.Join(dir, "Foo.hack")

	asmSource := "@2\nD=A\n@3\nD=D+A\n@0\nM=D\n"
	if err := os.WriteFile(input, []byte(asmSource), 0o644); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if code := Handler([]string{input, output}, map[string]string{}); code != 0 {
		t.Fatalf("Handler returned %d, want 0", code)
	}

	out, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("expected output file to be written: %s", err)
	}

	want := "0000000000000010\n1110110000010000\n0000000000000011\n1110000010010000\n0000000000000000\n1110001100001000\n"
	if string(out) != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestHandlerMissingInput(t *testing.T) {
	dir := t.TempDir()
	if code := Handler([]string{"/no/such/file.asm", filepath.Join(dir, "out.hack")}, map[string]string{}); code == 0 {
		t.Fatal("want non-zero exit code for a missing input file")
	}
}

func TestHandlerLabelsAndLoop(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Loop.asm")
	output := filepath.Join(dir, "Loop.hack")

	asmSource := "(LOOP)\n@LOOP\n0;JMP\n"
	if err := os.WriteFile(input, []byte(asmSource), 0o644); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if code := Handler([]string{input, output}, map[string]string{}); code != 0 {
		t.Fatalf("Handler returned %d, want 0", code)
	}

	out, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("expected output file to be written: %s", err)
	}
	want := "0000000000000000\n1110101010000111\n"
	if string(out) != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}
