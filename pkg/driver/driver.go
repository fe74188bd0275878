// Package driver ties the per-file Parser+Generator pipeline together: it resolves a
// CLI path argument to one or more .vm files, runs each through its own vm.Parser and
// codegen.Generator, and streams every file's translated instructions through one
// shared asm.Emitter so the whole build lands in a single .asm output.
package driver

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vmforge.dev/n2t/pkg/asm"
	"vmforge.dev/n2t/pkg/codegen"
	"vmforge.dev/n2t/pkg/vm"
)

// Target is a resolved translation unit: either a single .vm file, or every .vm file
// found in a directory (the Nand2Tetris "project" build mode), in a stable build order.
type Target struct {
	Dir   bool     // true when Root named a directory rather than a single file
	Root  string   // the path argument as given by the caller
	Files []string // .vm files to translate, in build order
}

// Resolve classifies 'path' using the filesystem rather than string suffix sniffing:
// a directory is a whole-project build (every *.vm file inside it, sorted by name for
// a reproducible build order), anything else is treated as a single translation unit.
func Resolve(path string) (Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Target{}, fmt.Errorf("driver: cannot stat %q: %w", path, err)
	}

	if !info.IsDir() {
		return Target{Root: path, Files: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Target{}, fmt.Errorf("driver: cannot read directory %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".vm" {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return Target{}, fmt.Errorf("driver: directory %q contains no .vm files", path)
	}

	return Target{Dir: true, Root: path, Files: files}, nil
}

// OutputPath derives the conventional .asm sibling for a Target, matching the
// Nand2Tetris tool convention: a single file 'Foo.vm' translates to 'Foo.asm' beside
// it, a directory build 'path/to/Proj' translates to 'path/to/Proj/Proj.asm'.
func OutputPath(t Target) string {
	if !t.Dir {
		return strings.TrimSuffix(t.Root, filepath.Ext(t.Root)) + ".asm"
	}

	base := filepath.Base(filepath.Clean(t.Root))
	return filepath.Join(t.Root, base+".asm")
}

// Options controls build-wide behavior not owned by any single .vm file.
type Options struct {
	// Bootstrap emits the SP=256 / call Sys.init 0 preamble once, before any file's
	// own code. Off by default, matching single-file builds; directory (whole
	// program) builds are the conventional place to turn it on.
	Bootstrap bool
}

// Run translates every file in t, in order, writing the combined Hack assembly to out.
func Run(t Target, out io.Writer, opts Options) error {
	emitter := asm.NewEmitter(out)

	if opts.Bootstrap {
		boot := codegen.NewGenerator(emitter, "Bootstrap")
		if err := boot.Bootstrap(); err != nil {
			return fmt.Errorf("driver: bootstrap: %w", err)
		}
	}

	for _, file := range t.Files {
		if err := translateFile(emitter, file); err != nil {
			return err
		}
	}

	if err := emitter.Flush(); err != nil {
		return fmt.Errorf("driver: flush: %w", err)
	}
	return nil
}

func translateFile(emitter *asm.Emitter, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("driver: cannot open %q: %w", file, err)
	}

	parser := vm.NewParser(bytes.NewReader(content))
	commands, err := parser.Parse()
	if err != nil {
		return fmt.Errorf("driver: %q: parsing: %w", file, err)
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	generator := codegen.NewGenerator(emitter, base)

	for _, cmd := range commands {
		if err := generator.Generate(cmd, vm.Render(cmd)); err != nil {
			return fmt.Errorf("driver: %q: codegen: %w", file, err)
		}
	}

	return nil
}
