package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"vmforge.dev/n2t/pkg/driver"
)

var Description = strings.ReplaceAll(`
The VM Translator translates a program written in the VM language into Hack assembly
code ready for the Hack assembler. The VM language is a higher-level (bytecode-like)
language tailored for use with the Hack computer architecture. The input can either be
a single '.vm' file or a directory containing several of them, in which case every file
inside it is translated and linked into one combined '.asm' output.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("path", "The .vm file or directory of .vm files to translate")).
	WithOption(cli.NewOption("bootstrap", "Prepend the SP=256 / call Sys.init 0 preamble").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	target, err := driver.Resolve(args[0])
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	outputPath := driver.OutputPath(target)
	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	_, bootstrap := options["bootstrap"]
	if err := driver.Run(target, output, driver.Options{Bootstrap: bootstrap}); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
