package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jackc.dev/compiler/pkg/jack"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Jack Compiler translates a Jack class (or a directory of them) into VM modules
that the downstream VM translator and Hack assembler can further elaborate. The Jack
language is a higher-level OOP language tailored for use with the Hack computer
architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	WithArg(cli.NewArg("path", "A .jack source file, or a directory containing .jack files").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: missing required argument 'path', use --help\n")
		return -1
	}

	inputs, err := collectInputs(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return -1
	}
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: no .jack files found at %q\n", args[0])
		return -1
	}

	for _, tu := range inputs {
		if err := compileOne(tu); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			return -1
		}
	}

	return 0
}

// collectInputs resolves path to the list of .jack files it names: the file itself if
// path is a .jack file, or every .jack file path directly contains (non-recursive) if
// it is a directory.
func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open input path: %w", err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read input directory: %w", err)
	}

	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jack" {
			continue
		}
		inputs = append(inputs, filepath.Join(path, entry.Name()))
	}
	return inputs, nil
}

// compileOne compiles the single .jack file at tu, writing its VM translation
// alongside it as <name>.vm.
func compileOne(tu string) error {
	source, err := os.Open(tu)
	if err != nil {
		return fmt.Errorf("unable to open input file: %w", err)
	}
	defer source.Close()

	outPath := strings.TrimSuffix(tu, filepath.Ext(tu)) + ".vm"
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("unable to open output file: %w", err)
	}
	defer out.Close()

	if err := jack.CompileFile(source, out); err != nil {
		return fmt.Errorf("%s: %w", tu, err)
	}
	return nil
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stderr)) }
