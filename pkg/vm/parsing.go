package vm

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & command of the VM language.
//
// Each combinator either manages a whole command (Push, Arithmetic, ...) or a piece of one:
// tokens, identifiers, segment names. Comments (// ... to end of line) are matched alongside
// real commands so they can be found and discarded during the AST walk below.

// Top level object, generates the traversable AST based on the combinators below.
var ast = pc.NewAST("vm", 0)

var (
	// Parser combinator for an entire VM module (a sequence of comments and commands).
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pCommand), pc.End())

	// Parser combinator for comments, either on their own line or trailing a command.
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	// Parser combinator for a generic VM command.
	//
	// 'if-goto' is tried ahead of 'goto' so the two never get folded into a single "jump with
	// a flag" node the way a naive implementation might: each resolves to its own command kind.
	pCommand = ast.OrdChoice("command", nil,
		pPushOp, pPopOp, pArithmeticOp,
		pIfGotoOp, pGotoOp, pLabelOp,
		pFuncDecl, pFuncCallOp, pReturnOp,
	)

	// Memory commands, compliant with the syntax: "push {segment} {index}" / "pop {segment} {index}"
	pPushOp = ast.And("push_op", nil, pc.Atom("push", "PUSH"), pSegment, pc.Int())
	pPopOp  = ast.And("pop_op", nil, pc.Atom("pop", "POP"), pSegment, pc.Int())

	// Arithmetic command, either binary or unary (only ever touches the top 1-2 cells).
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// Label declaration, compliant with the syntax: "label {symbol}"
	pLabelOp = ast.And("label_op", nil, pc.Atom("label", "LABEL"), pIdent)
	// Unconditional jump, compliant with the syntax: "goto {symbol}"
	pGotoOp = ast.And("goto_op", nil, pc.Atom("goto", "GOTO"), pIdent)
	// Conditional jump, compliant with the syntax: "if-goto {symbol}"
	pIfGotoOp = ast.And("ifgoto_op", nil, pc.Atom("if-goto", "IF-GOTO"), pIdent)

	// Function declaration, compliant with the syntax: "function {name} {n_locals}"
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// Function call, compliant with the syntax: "call {name} {n_args}"
	pFuncCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// Return, compliant with the syntax: "return"
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// Generic identifier parser (for label, goto, function and call names).
	// NOTE: An ident can be any sequence of letters, digits, and symbols (_, ., $, :).
	// NOTE: An ident cannot begin with a leading digit (a symbol is indeed allowed).
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	// Available memory segments.
	pSegment = ast.OrdChoice("segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("constant", "CONSTANT"), pc.Atom("static", "STATIC"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	// Available arithmetic/logical operation types.
	pArithOpType = ast.OrdChoice("arith_op_type", nil,
		// Comparison operations
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		// Arithmetic operations
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		// Bitwise operations
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)
)

// ----------------------------------------------------------------------------
// Vm Parser

// This section defines the Parser for the nand2tetris VM language.
//
// It uses parser combinators to obtain the AST from the source code (which can be provided
// by any io.Reader), the library reads the following feature flags as env vars:
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in the DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Print on the stdout a textual representation of the AST
type Parser struct{ reader io.Reader }

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse reads the whole underlying file once and returns its commands, in source order.
// The parser carries no state past this call: no enclosing-function or counter bookkeeping
// lives here, that context belongs entirely to the generator that consumes the result.
func (p *Parser) Parse() ([]Command, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from 'io.Reader': %s", err)
	}

	root, success := p.FromSource(content)
	if !success {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// Scans the textual input and returns a traversable AST (Abstract Syntax Tree)
// that can be walked to extract the command list.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, _ := ast.Parsewith(pModule, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(ast.Dotstring("\"VM AST\"")))
	}

	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, true // Always reports success: whether the scan reached 'EOF' is not checked
}

// FromAST takes the root of the raw parsed AST and performs a DFS on it, converting
// one subtree at a time into its 'vm.Command' counterpart.
func (p *Parser) FromAST(root pc.Queryable) ([]Command, error) {
	commands := []Command{}

	if root.GetName() != "module" {
		return nil, fmt.Errorf("expected node 'module', found %s", root.GetName())
	}

	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "push_op":
			cmd, err := p.handlePush(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "pop_op":
			cmd, err := p.handlePop(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "arithmetic_op":
			cmd, err := p.handleArithmetic(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "label_op":
			cmd, err := p.handleLabel(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "goto_op":
			cmd, err := p.handleGoto(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "ifgoto_op":
			cmd, err := p.handleIfGoto(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "func_decl":
			cmd, err := p.handleFuncDecl(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "func_call":
			cmd, err := p.handleFuncCall(child)
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)

		case "return_op":
			commands = append(commands, Return{})

		case "comment": // Comment nodes carry no instruction, they're just skipped
			continue

		default:
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}
	}

	return commands, nil
}

func (Parser) handlePush(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("expected node 'push_op' with 3 leaf, got %d", len(children))
	}
	index, err := parseIndex(children[2].GetValue())
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	return Push{Segment: Segment(children[1].GetValue()), Index: index}, nil
}

func (Parser) handlePop(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("expected node 'pop_op' with 3 leaf, got %d", len(children))
	}
	index, err := parseIndex(children[2].GetValue())
	if err != nil {
		return nil, fmt.Errorf("pop: %w", err)
	}
	return Pop{Segment: Segment(children[1].GetValue()), Index: index}, nil
}

func (Parser) handleArithmetic(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 1 {
		return nil, fmt.Errorf("expected node 'arithmetic_op' with 1 leaf, got %d", len(children))
	}
	return Arithmetic{Op: ArithOp(children[0].GetValue())}, nil
}

func (Parser) handleLabel(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("expected node 'label_op' with 2 leaf, got %d", len(children))
	}
	return Label{Name: children[1].GetValue()}, nil
}

func (Parser) handleGoto(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("expected node 'goto_op' with 2 leaf, got %d", len(children))
	}
	return Goto{Target: children[1].GetValue()}, nil
}

func (Parser) handleIfGoto(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 2 {
		return nil, fmt.Errorf("expected node 'ifgoto_op' with 2 leaf, got %d", len(children))
	}
	return IfGoto{Target: children[1].GetValue()}, nil
}

func (Parser) handleFuncDecl(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("expected node 'func_decl' with 3 leaf, got %d", len(children))
	}
	nLocals, err := parseIndex(children[2].GetValue())
	if err != nil {
		return nil, fmt.Errorf("function: %w", err)
	}
	return Function{Name: children[1].GetValue(), NLocals: nLocals}, nil
}

func (Parser) handleFuncCall(node pc.Queryable) (Command, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, fmt.Errorf("expected node 'func_call' with 3 leaf, got %d", len(children))
	}
	nArgs, err := parseIndex(children[2].GetValue())
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	return Call{Name: children[1].GetValue(), NArgs: nArgs}, nil
}

func parseIndex(raw string) (uint16, error) {
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		log.Printf("failed to parse numeric operand, got '%s'", raw)
		return 0, err
	}
	return uint16(n), nil
}
