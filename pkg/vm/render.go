package vm

import "fmt"

// Render reconstructs the canonical VM source text for cmd. It is not guaranteed to be
// byte-identical to whatever line it was originally parsed from (whitespace and any
// trailing comment are not preserved by the parser), but it is a faithful enough
// rendering for the generator's leading "// <command>" annotation ahead of every
// command's emitted code.
func Render(cmd Command) string {
	switch c := cmd.(type) {
	case Arithmetic:
		return string(c.Op)
	case Push:
		return fmt.Sprintf("push %s %d", c.Segment, c.Index)
	case Pop:
		return fmt.Sprintf("pop %s %d", c.Segment, c.Index)
	case Label:
		return fmt.Sprintf("label %s", c.Name)
	case Goto:
		return fmt.Sprintf("goto %s", c.Target)
	case IfGoto:
		return fmt.Sprintf("if-goto %s", c.Target)
	case Function:
		return fmt.Sprintf("function %s %d", c.Name, c.NLocals)
	case Call:
		return fmt.Sprintf("call %s %d", c.Name, c.NArgs)
	case Return:
		return "return"
	case Empty:
		return ""
	default:
		return fmt.Sprintf("%T", cmd)
	}
}
