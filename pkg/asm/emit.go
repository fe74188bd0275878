package asm

import (
	"bufio"
	"fmt"
	"io"
)

// ----------------------------------------------------------------------------
// Emitter

// Emitter writes Asm statements directly to an underlying sink as they are produced,
// one line at a time, rather than accumulating an in-memory 'asm.Program' first.
//
// pkg/codegen drives this type: every command it translates turns into one EmitComment
// call followed by zero or more EmitA/EmitC/EmitLabel calls. Nothing here buffers beyond
// what bufio.Writer itself buffers, and nothing here is safe for concurrent use.
type Emitter struct {
	out   *bufio.Writer
	lines int // Number of lines written so far, exposed for callers sizing e.g. return labels
}

// NewEmitter wraps 'w' in a buffered writer and returns a ready to use Emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{out: bufio.NewWriter(w)}
}

// Lines reports how many statements have been written so far.
func (e *Emitter) Lines() int { return e.lines }

// EmitA writes an A Instruction loading 'location', which may be a raw address,
// a built-in symbol, or a user-defined label.
func (e *Emitter) EmitA(location string) error {
	return e.writeLine(fmt.Sprintf("@%s", location))
}

// EmitC writes a C Instruction. Exactly one of dest/jump is normally non-empty for any
// single instruction produced by this translator, but both empty comp-only forms used
// by the sibling assembler's test fixtures are also accepted and passed through as-is.
func (e *Emitter) EmitC(dest, comp, jump string) error {
	switch {
	case dest != "" && jump != "":
		return e.writeLine(fmt.Sprintf("%s=%s;%s", dest, comp, jump))
	case dest != "":
		return e.writeLine(fmt.Sprintf("%s=%s", dest, comp))
	case jump != "":
		return e.writeLine(fmt.Sprintf("%s;%s", comp, jump))
	default:
		return e.writeLine(comp)
	}
}

// EmitLabel writes a label declaration, binding the next instruction's address to 'name'.
func (e *Emitter) EmitLabel(name string) error {
	return e.writeLine(fmt.Sprintf("(%s)", name))
}

// EmitComment writes a source-annotation line. Safe to call with an empty string, in
// which case it still writes "// " with no text after it so the comment/instruction
// pairing stays 1:1.
func (e *Emitter) EmitComment(text string) error {
	return e.writeLine(fmt.Sprintf("// %s", text))
}

// Flush pushes any buffered bytes to the underlying sink. Callers must call this once
// after the last Emit* call; nothing here flushes implicitly on a timer or line count.
func (e *Emitter) Flush() error {
	return e.out.Flush()
}

func (e *Emitter) writeLine(line string) error {
	if _, err := fmt.Fprintln(e.out, line); err != nil {
		return fmt.Errorf("emitter: %w", err)
	}
	e.lines++
	return nil
}
