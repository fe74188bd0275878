// Package codegen turns a stream of vm.Command values into Hack assembly, one command
// at a time, writing straight through an asm.Emitter.
//
// Everything the translation needs to remember between commands of the same file lives
// on the Generator: the comparison counter (for unique TRUE/FALSE/.../CONTINUE labels),
// the name of the function currently being translated (for F$label scoping and cleared
// by Return), a per-function call-site counter (for F$ret.N return labels), and the
// source file's base name (for static variable scoping). vm.Parser never carries any of
// this, it only ever hands back an ordered, immutable []vm.Command.
package codegen

import (
	"fmt"

	"vmforge.dev/n2t/pkg/asm"
	"vmforge.dev/n2t/pkg/vm"
)

// Generator holds the translation context for a single VM source file.
type Generator struct {
	out *asm.Emitter

	fileName        string         // Basename of the .vm file being translated, used for 'static'
	currentFunction string         // Name of the enclosing function, "" outside of any function
	cmpCounter      int            // Monotonic counter, shared by eq/gt/lt, for unique branch labels
	callSites       map[string]int // Per-caller count of 'call' commands seen, for F$ret.N labels
}

// NewGenerator returns a Generator that writes through 'out', scoping 'static' segment
// accesses to 'fileName' (normally the .vm file's base name, without extension).
func NewGenerator(out *asm.Emitter, fileName string) *Generator {
	return &Generator{out: out, fileName: fileName, callSites: map[string]int{}}
}

// Generate translates a single command, first emitting a Comment carrying 'raw' (the
// original source line) and then the instructions the command lowers to. 'raw' is
// allowed to be empty, in which case the leading comment line carries no text.
func (g *Generator) Generate(cmd vm.Command, raw string) error {
	if err := g.out.EmitComment(raw); err != nil {
		return err
	}

	switch c := cmd.(type) {
	case vm.Arithmetic:
		return g.arithmetic(c)
	case vm.Push:
		return g.push(c)
	case vm.Pop:
		return g.pop(c)
	case vm.Label:
		return g.label(c)
	case vm.Goto:
		return g.goto_(c)
	case vm.IfGoto:
		return g.ifGoto(c)
	case vm.Function:
		return g.function(c)
	case vm.Call:
		return g.call(c)
	case vm.Return:
		return g.return_()
	case vm.Empty:
		return nil
	default:
		return fmt.Errorf("codegen: unrecognized command %T", cmd)
	}
}

// scope returns the label prefix for the enclosing translation unit: the current
// function when inside one, otherwise the file name (a handful of VM programs, the
// bootstrap sequence among them, declare labels outside of any function).
func (g *Generator) scope() string {
	if g.currentFunction != "" {
		return g.currentFunction
	}
	return g.fileName
}

// ----------------------------------------------------------------------------
// Stack primitives

// pushD emits the code that pushes the current value of D onto the stack.
func (g *Generator) pushD() error {
	return g.emitAll(
		a("SP"), c("AM", "M+1", ""), c("A", "A-1", ""), c("M", "D", ""),
	)
}

// popD emits the code that pops the stack top into D, leaving SP decremented.
func (g *Generator) popD() error {
	return g.emitAll(a("SP"), c("AM", "M-1", ""), c("D", "M", ""))
}

// ----------------------------------------------------------------------------
// Arithmetic / logical

func (g *Generator) arithmetic(cmd vm.Arithmetic) error {
	switch cmd.Op {
	case vm.Add:
		return g.binary("M+D")
	case vm.Sub:
		return g.binary("M-D")
	case vm.And:
		return g.binary("M&D")
	case vm.Or:
		return g.binary("M|D")
	case vm.Neg:
		return g.unary("-M")
	case vm.Not:
		return g.unary("!M")
	case vm.Eq:
		return g.compare("JEQ", "")
	case vm.Gt:
		return g.compare("JGT", "x-not-negative")
	case vm.Lt:
		return g.compare("JLT", "x-negative")
	default:
		return fmt.Errorf("codegen: unknown arithmetic op %q", cmd.Op)
	}
}

// binary implements the non-comparison binary ops (add, sub, and, or). It nets a
// single SP decrement: one AM=M-1 pops the right-hand operand into D, then the result
// overwrites the left-hand operand's cell in place without a second SP adjustment.
func (g *Generator) binary(comp string) error {
	return g.emitAll(
		a("SP"), c("AM", "M-1", ""), c("D", "M", ""), c("A", "A-1", ""), c("M", comp, ""),
	)
}

// unary implements neg/not. SP is never touched: the top cell is rewritten in place.
func (g *Generator) unary(comp string) error {
	return g.emitAll(a("SP"), c("A", "M-1", ""), c("M", comp, ""))
}

// compare implements eq/gt/lt with a single shared shape: pop y and x into R13/R14,
// decide whether a plain x-y subtraction is overflow-safe, and branch to TRUE/FALSE.
//
// eq needs no sign check: if x == y the subtraction cannot overflow, and if x != y an
// overflowing subtraction still can't land on exactly zero given 16-bit operands, so
// "mixedSignTrueWhen" is left empty and the sign-dispatch block is skipped entirely.
// For gt/lt, when x and y have different signs the comparison result is known from
// x's sign alone (mixedSignTrueWhen says which sign of x makes the result true),
// sidestepping the subtraction that would otherwise overflow.
func (g *Generator) compare(sameSignJump string, mixedSignTrueWhen string) error {
	n := g.cmpCounter
	g.cmpCounter++
	scope := g.scope()

	trueL := fmt.Sprintf("%s$TRUE.%d", scope, n)
	falseL := fmt.Sprintf("%s$FALSE.%d", scope, n)
	contL := fmt.Sprintf("%s$CONTINUE.%d", scope, n)

	if err := g.emitAll(
		a("SP"), c("AM", "M-1", ""), c("D", "M", ""), a("R13"), c("M", "D", ""),
		a("SP"), c("AM", "M-1", ""), c("D", "M", ""), a("R14"), c("M", "D", ""),
	); err != nil {
		return err
	}

	if mixedSignTrueWhen != "" {
		if err := g.compareSignDispatch(n, scope, mixedSignTrueWhen, trueL, falseL); err != nil {
			return err
		}
	}

	regularL := fmt.Sprintf("%s$REGULAR.%d", scope, n)
	if mixedSignTrueWhen != "" {
		if err := g.out.EmitLabel(regularL); err != nil {
			return err
		}
	}
	if err := g.emitAll(
		a("R14"), c("D", "M", ""), a("R13"), c("D", "D-M", ""),
	); err != nil {
		return err
	}
	if err := g.out.EmitA(trueL); err != nil {
		return err
	}
	if err := g.out.EmitC("", "D", sameSignJump); err != nil {
		return err
	}

	if err := g.out.EmitLabel(falseL); err != nil {
		return err
	}
	if err := g.emitAll(c("D", "0", "")); err != nil {
		return err
	}
	if err := g.out.EmitA(contL); err != nil {
		return err
	}
	if err := g.out.EmitC("", "0", "JMP"); err != nil {
		return err
	}

	if err := g.out.EmitLabel(trueL); err != nil {
		return err
	}
	if err := g.emitAll(c("D", "-1", "")); err != nil {
		return err
	}

	if err := g.out.EmitLabel(contL); err != nil {
		return err
	}
	return g.pushD()
}

// compareSignDispatch emits the x/y sign comparison used by gt/lt to bypass an
// overflowing subtraction: when the operands' signs differ, the result is decided
// without ever computing x-y.
func (g *Generator) compareSignDispatch(n int, scope, mixedSignTrueWhen, trueL, falseL string) error {
	xNeg := fmt.Sprintf("%s$XNEG.%d", scope, n)
	mixed := fmt.Sprintf("%s$MIXED.%d", scope, n)
	regular := fmt.Sprintf("%s$REGULAR.%d", scope, n)

	mixedIsTrue := falseL
	mixedIsFalse := trueL
	if mixedSignTrueWhen == "x-not-negative" {
		mixedIsTrue, mixedIsFalse = trueL, falseL
	}

	if err := g.emitAll(a("R14"), c("D", "M", "")); err != nil { // D = x
		return err
	}
	if err := g.out.EmitA(xNeg); err != nil {
		return err
	}
	if err := g.out.EmitC("", "D", "JLT"); err != nil {
		return err
	}
	// x >= 0 here
	if err := g.emitAll(a("R13"), c("D", "M", "")); err != nil { // D = y
		return err
	}
	if err := g.out.EmitA(mixed); err != nil {
		return err
	}
	if err := g.out.EmitC("", "D", "JLT"); err != nil { // y < 0 -> mixed signs, x non-negative
		return err
	}
	if err := g.out.EmitA(regular); err != nil { // both non-negative
		return err
	}
	if err := g.out.EmitC("", "0", "JMP"); err != nil {
		return err
	}

	if err := g.out.EmitLabel(xNeg); err != nil {
		return err
	}
	if err := g.emitAll(a("R13"), c("D", "M", "")); err != nil { // D = y
		return err
	}
	if err := g.out.EmitA(regular); err != nil {
		return err
	}
	if err := g.out.EmitC("", "D", "JLT"); err != nil { // y < 0 too -> both negative
		return err
	}
	// x < 0, y >= 0 here: mixed signs, x negative
	if err := g.out.EmitA(mixedIsFalse); err != nil {
		return err
	}
	if err := g.out.EmitC("", "0", "JMP"); err != nil {
		return err
	}

	if err := g.out.EmitLabel(mixed); err != nil { // x >= 0, y < 0
		return err
	}
	if err := g.out.EmitA(mixedIsTrue); err != nil {
		return err
	}
	return g.out.EmitC("", "0", "JMP")
}

// ----------------------------------------------------------------------------
// Memory access

func (g *Generator) push(cmd vm.Push) error {
	switch cmd.Segment {
	case vm.Constant:
		return g.emitAll(a(index(cmd.Index)), c("D", "A", ""), pushDMarker{})
	case vm.Local, vm.Argument, vm.This, vm.That:
		base := segmentBase(cmd.Segment)
		return g.emitAll(
			a(base), c("D", "M", ""), a(index(cmd.Index)), c("A", "D+A", ""), c("D", "M", ""), pushDMarker{},
		)
	case vm.Temp:
		addr, err := tempAddress(cmd.Index)
		if err != nil {
			return err
		}
		return g.emitAll(a(index(addr)), c("D", "M", ""), pushDMarker{})
	case vm.Pointer:
		reg, err := pointerRegister(cmd.Index)
		if err != nil {
			return err
		}
		return g.emitAll(a(reg), c("D", "M", ""), pushDMarker{})
	case vm.Static:
		return g.emitAll(a(g.staticName(cmd.Index)), c("D", "M", ""), pushDMarker{})
	default:
		return fmt.Errorf("codegen: push: unknown segment %q", cmd.Segment)
	}
}

func (g *Generator) pop(cmd vm.Pop) error {
	switch cmd.Segment {
	case vm.Constant:
		return fmt.Errorf("codegen: pop constant %d: constant is not an addressable destination", cmd.Index)
	case vm.Local, vm.Argument, vm.This, vm.That:
		base := segmentBase(cmd.Segment)
		if err := g.emitAll(
			a(base), c("D", "M", ""), a(index(cmd.Index)), c("D", "D+A", ""), a("R13"), c("M", "D", ""),
		); err != nil {
			return err
		}
		if err := g.popD(); err != nil {
			return err
		}
		return g.emitAll(a("R13"), c("A", "M", ""), c("M", "D", ""))
	case vm.Temp:
		addr, err := tempAddress(cmd.Index)
		if err != nil {
			return err
		}
		if err := g.popD(); err != nil {
			return err
		}
		return g.emitAll(a(index(addr)), c("M", "D", ""))
	case vm.Pointer:
		reg, err := pointerRegister(cmd.Index)
		if err != nil {
			return err
		}
		if err := g.popD(); err != nil {
			return err
		}
		return g.emitAll(a(reg), c("M", "D", ""))
	case vm.Static:
		if err := g.popD(); err != nil {
			return err
		}
		return g.emitAll(a(g.staticName(cmd.Index)), c("M", "D", ""))
	default:
		return fmt.Errorf("codegen: pop: unknown segment %q", cmd.Segment)
	}
}

func segmentBase(seg vm.Segment) string {
	switch seg {
	case vm.Local:
		return "LCL"
	case vm.Argument:
		return "ARG"
	case vm.This:
		return "THIS"
	default: // vm.That
		return "THAT"
	}
}

// tempAddress validates and resolves a 'temp' segment index; the Hack platform
// reserves exactly 8 words (RAM[5..12]) for it.
func tempAddress(idx uint16) (uint16, error) {
	if idx > 7 {
		return 0, fmt.Errorf("codegen: temp index %d out of range (0-7)", idx)
	}
	return 5 + idx, nil
}

// pointerRegister resolves a 'pointer' segment index to the THIS/THAT register it aliases.
func pointerRegister(idx uint16) (string, error) {
	switch idx {
	case 0:
		return "THIS", nil
	case 1:
		return "THAT", nil
	default:
		return "", fmt.Errorf("codegen: pointer index %d out of range (0-1)", idx)
	}
}

func (g *Generator) staticName(idx uint16) string {
	return fmt.Sprintf("%s.%d", g.fileName, idx)
}

// ----------------------------------------------------------------------------
// Branching

func (g *Generator) label(cmd vm.Label) error {
	return g.out.EmitLabel(fmt.Sprintf("%s$%s", g.scope(), cmd.Name))
}

func (g *Generator) goto_(cmd vm.Goto) error {
	if err := g.out.EmitA(fmt.Sprintf("%s$%s", g.scope(), cmd.Target)); err != nil {
		return err
	}
	return g.out.EmitC("", "0", "JMP")
}

func (g *Generator) ifGoto(cmd vm.IfGoto) error {
	if err := g.popD(); err != nil {
		return err
	}
	if err := g.out.EmitA(fmt.Sprintf("%s$%s", g.scope(), cmd.Target)); err != nil {
		return err
	}
	return g.out.EmitC("", "D", "JNE")
}

// ----------------------------------------------------------------------------
// Function abstraction

func (g *Generator) function(cmd vm.Function) error {
	g.currentFunction = cmd.Name

	if err := g.out.EmitLabel(cmd.Name); err != nil {
		return err
	}
	for i := uint16(0); i < cmd.NLocals; i++ {
		if err := g.emitAll(a("SP"), c("A", "M", ""), c("M", "0", ""), a("SP"), c("M", "M+1", "")); err != nil {
			return err
		}
	}
	return nil
}

// call implements the standard frame-save/jump/return-label sequence. The return
// label is scoped to the calling function (never the callee), numbered by how many
// 'call' commands have already been translated inside that caller: since function
// names are unique across a whole VM program, this is enough to guarantee every
// return label in the build is unique without any cross-file bookkeeping.
func (g *Generator) call(cmd vm.Call) error {
	caller := g.scope()
	n := g.callSites[caller]
	g.callSites[caller] = n + 1
	returnLabel := fmt.Sprintf("%s$ret.%d", caller, n)

	if err := g.emitAll(a(returnLabel), c("D", "A", ""), pushDMarker{}); err != nil {
		return err
	}
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		if err := g.emitAll(a(reg), c("D", "M", ""), pushDMarker{}); err != nil {
			return err
		}
	}

	if err := g.emitAll(
		a("SP"), c("D", "M", ""), a(index(cmd.NArgs+5)), c("D", "D-A", ""), a("ARG"), c("M", "D", ""),
		a("SP"), c("D", "M", ""), a("LCL"), c("M", "D", ""),
	); err != nil {
		return err
	}

	if err := g.out.EmitA(cmd.Name); err != nil {
		return err
	}
	if err := g.out.EmitC("", "0", "JMP"); err != nil {
		return err
	}
	return g.out.EmitLabel(returnLabel)
}

// return_ unwinds the current frame via R13 (frame pointer) and R14 (return address),
// restoring LCL/ARG/THIS/THAT in the reverse order Call pushed them, then clears
// currentFunction: only the enclosing-function name is reset here, a callee's own
// call-site counter entry is left untouched for any later call still inside it.
func (g *Generator) return_() error {
	if err := g.emitAll(
		a("LCL"), c("D", "M", ""), a("R13"), c("M", "D", ""), // R13 = frame = LCL
		a("5"), c("A", "D-A", ""), c("D", "M", ""), a("R14"), c("M", "D", ""), // R14 = *(frame-5)
	); err != nil {
		return err
	}
	if err := g.popD(); err != nil { // D = pop()
		return err
	}
	if err := g.emitAll(
		a("ARG"), c("A", "M", ""), c("M", "D", ""), // *ARG = D
		a("ARG"), c("D", "M+1", ""), a("SP"), c("M", "D", ""), // SP = ARG + 1
		a("R13"), c("AM", "M-1", ""), c("D", "M", ""), a("THAT"), c("M", "D", ""),
		a("R13"), c("AM", "M-1", ""), c("D", "M", ""), a("THIS"), c("M", "D", ""),
		a("R13"), c("AM", "M-1", ""), c("D", "M", ""), a("ARG"), c("M", "D", ""),
		a("R13"), c("AM", "M-1", ""), c("D", "M", ""), a("LCL"), c("M", "D", ""),
		a("R14"), c("A", "M", ""),
	); err != nil {
		return err
	}
	if err := g.out.EmitC("", "0", "JMP"); err != nil {
		return err
	}

	g.currentFunction = ""
	return nil
}

// ----------------------------------------------------------------------------
// Bootstrap

// Bootstrap emits the fixed SP=256 preamble followed by a call to Sys.init, the
// sequence a build with driver.Options.Bootstrap set (in either single-file or
// directory mode) emits exactly once before any file's code.
// The driver is responsible for calling this at most once per build (spec.md §5).
func (g *Generator) Bootstrap() error {
	if err := g.out.EmitComment("bootstrap"); err != nil {
		return err
	}
	if err := g.emitAll(a(index(256)), c("D", "A", ""), a("SP"), c("M", "D", "")); err != nil {
		return err
	}
	return g.call(vm.Call{Name: "Sys.init", NArgs: 0})
}

// ----------------------------------------------------------------------------
// Low level emission helpers

// statement is a tiny internal vocabulary so emitAll can take a flat, readable list
// mixing A/C instructions with the occasional pushD without a type switch per call site.
type statement interface{ emit(*Generator) error }

type aStmt string

func (s aStmt) emit(g *Generator) error { return g.out.EmitA(string(s)) }

func a(location string) statement { return aStmt(location) }

type cStmt struct{ dest, comp, jump string }

func (s cStmt) emit(g *Generator) error { return g.out.EmitC(s.dest, s.comp, s.jump) }

func c(dest, comp, jump string) statement { return cStmt{dest, comp, jump} }

type pushDMarker struct{}

func (pushDMarker) emit(g *Generator) error { return g.pushD() }

func (g *Generator) emitAll(stmts ...statement) error {
	for _, s := range stmts {
		if err := s.emit(g); err != nil {
			return err
		}
	}
	return nil
}

func index(n uint16) string { return fmt.Sprintf("%d", n) }
