package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandlerSingleFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Foo.vm")
	if err := os.WriteFile(input, []byte("push constant 7\npush constant 8\nadd\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if code := Handler([]string{input}, map[string]string{}); code != 0 {
		t.Fatalf("Handler returned %d, want 0", code)
	}

	out, err := os.ReadFile(filepath.Join(dir, "Foo.asm"))
	if err != nil {
		t.Fatalf("expected output file to be written: %s", err)
	}
	if !strings.Contains(string(out), "M=M+D") {
		t.Errorf("expected translated 'add', got:\n%s", out)
	}
	if strings.Contains(string(out), "@256") {
		t.Errorf("did not expect bootstrap without --bootstrap, got:\n%s", out)
	}
}

func TestHandlerBootstrapOption(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Foo.vm")
	if err := os.WriteFile(input, []byte("function Sys.init 0\nreturn\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if code := Handler([]string{input}, map[string]string{"bootstrap": "true"}); code != 0 {
		t.Fatalf("Handler returned %d, want 0", code)
	}

	out, err := os.ReadFile(filepath.Join(dir, "Foo.asm"))
	if err != nil {
		t.Fatalf("expected output file to be written: %s", err)
	}
	if !strings.HasPrefix(string(out), "// bootstrap\n@256") {
		t.Errorf("expected bootstrap preamble first, got:\n%s", out)
	}
}

func TestHandlerMissingArgument(t *testing.T) {
	if code := Handler([]string{}, map[string]string{}); code == 0 {
		t.Fatal("want non-zero exit code when no path is given")
	}
}

func TestHandlerMissingFile(t *testing.T) {
	if code := Handler([]string{"/no/such/path.vm"}, map[string]string{}); code == 0 {
		t.Fatal("want non-zero exit code for an unresolvable path")
	}
}
