// Command modlang is the interpreter's entry point: it mirrors cmd/smog's
// argv-switch dispatch (run/compile/disassemble/repl/version/help), generalized
// to this language's two file kinds (.ml source, .mlc compiled bytecode) the
// same way runFile/runSourceFile/runBytecodeFile split there.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modlang/modlang/internal/container"
	"github.com/modlang/modlang/internal/diag"
	"github.com/modlang/modlang/internal/disasm"
	"github.com/modlang/modlang/internal/session"
	"github.com/modlang/modlang/internal/token"
)

const version = "0.1.0"

func main() {
	args, debug := splitDebugFlag(os.Args[1:])

	if len(args) == 0 {
		runREPL(debug)
		return
	}

	switch args[0] {
	case "version", "-v", "--version":
		fmt.Printf("modlang version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL(debug)
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(1)
		}
		runFile(args[1], debug)
	case "compile":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: modlang compile <input.ml> [output.mlc]")
			os.Exit(1)
		}
		out := ""
		if len(args) >= 3 {
			out = args[2]
		}
		compileFile(args[1], out, debug)
	case "disassemble", "disasm":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: modlang disasm <file.mlc>")
			os.Exit(1)
		}
		disassembleFile(args[1])
	default:
		runFile(args[0], debug)
	}
}

// splitDebugFlag pulls a "-debug" flag out of args wherever it appears,
// since the subcommand dispatch above wants args with only the
// subcommand/filename positions left.
func splitDebugFlag(args []string) (rest []string, debug bool) {
	for _, a := range args {
		if a == "-debug" || a == "--debug" {
			debug = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, debug
}

func printUsage() {
	fmt.Println("modlang - a small statically-typed expression-oriented language")
	fmt.Println("\nUsage:")
	fmt.Println("  modlang                       Start interactive REPL")
	fmt.Println("  modlang [file]                Run a .ml or .mlc file")
	fmt.Println("  modlang run [file]            Run a .ml or .mlc file")
	fmt.Println("  modlang compile <in> [out]    Compile .ml source to .mlc bytecode")
	fmt.Println("  modlang disasm <file.mlc>     Disassemble a .mlc bytecode file")
	fmt.Println("  modlang repl                  Start interactive REPL")
	fmt.Println("  modlang version               Show version")
	fmt.Println("  modlang help                  Show this help")
	fmt.Println("\nFlags:")
	fmt.Println("  -debug    Print disassembly of every statement/procedure as it runs")
	fmt.Println("\nFile Extensions:")
	fmt.Println("  .ml     Source code files (text)")
	fmt.Println("  .mlc    Compiled bytecode files (binary)")
}

// runFile dispatches on extension, the same way cmd/smog's runFile picks
// between its fast bytecode path and its source path.
func runFile(filename string, debug bool) {
	if filepath.Ext(filename) == ".mlc" {
		runBytecodeFile(filename, debug)
		return
	}
	runSourceFile(filename, debug)
}

func runSourceFile(filename string, debug bool) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	s := session.New(os.Stdout, debug)
	tk := token.New(string(data))
	for {
		done, err := s.RunItem(tk, os.Stdout, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		if done {
			return
		}
	}
}

func runBytecodeFile(filename string, debug bool) {
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	c, err := container.Decode(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}

	s := session.New(os.Stdout, debug)
	if err := s.RunContainer(c); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// compileFile is the source-only half of runFile's dispatch, writing a
// container instead of running it, the same shape as cmd/smog's compileFile.
func compileFile(inputFile, outputFile string, debug bool) {
	if outputFile == "" {
		if filepath.Ext(inputFile) == ".ml" {
			outputFile = strings.TrimSuffix(inputFile, ".ml") + ".mlc"
		} else {
			outputFile = inputFile + ".mlc"
		}
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	s := session.New(os.Stdout, debug)
	tk := token.New(string(data))
	c, err := s.Compile(tk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	outFile, err := os.Create(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	if err := container.Encode(c, outFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing bytecode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Compiled %s -> %s\n", inputFile, outputFile)
}

func disassembleFile(filename string) {
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	c, err := container.Decode(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== %s ===\n\n", filename)
	for _, p := range c.Procedures {
		fmt.Printf("proc %s:\n", p.Name)
		disasm.Fprint(os.Stdout, p.Code)
		fmt.Println()
	}
	fmt.Println("top level:")
	disasm.Fprint(os.Stdout, c.Code)
}

// runREPL drives a persistent session from standard input, one line at a
// time, with a single quit command. Each line is run until the tokenizer
// reaches a real token.EOF; the buffer is then cleared, so the prompt is
// always "> ". A bracketed expression spanning several lines is not
// resumable by this parser (see DESIGN.md): it surfaces as a parse error on
// the line that opens the bracket, when that line's input runs out. A
// compile error is printed and the loop continues; a runtime error is
// printed and aborts the process.
func runREPL(debug bool) {
	fmt.Printf("modlang %s\n", version)
	fmt.Println("Type 'quit' or 'exit' to leave, 'help' for a reminder of that.")
	fmt.Println()

	s := session.New(os.Stdout, debug)
	scanner := bufio.NewScanner(os.Stdin)

	var buf strings.Builder
	tk := token.New("")

	for {
		if buf.Len() == 0 {
			fmt.Print("> ")
		} else {
			fmt.Print("... ")
		}

		if !scanner.Scan() {
			fmt.Println()
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			}
			return
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "quit", "exit":
				return
			case "help":
				printREPLHelp()
				continue
			case "":
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		tk.Extend(line + "\n")

		for {
			done, err := s.RunItem(tk, os.Stdout, true)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				var de *diag.Error
				if errors.As(err, &de) && de.Kind == diag.Runtime {
					os.Exit(1)
				}
				buf.Reset()
				tk = token.New("")
				break
			}
			if done {
				buf.Reset()
				break
			}
		}
	}
}

func printREPLHelp() {
	fmt.Println("modlang REPL")
	fmt.Println()
	fmt.Println("  quit, exit    leave the REPL")
	fmt.Println("  help          show this message")
	fmt.Println()
	fmt.Println("Enter a statement and press Enter. `name := expr;` binds a")
	fmt.Println("global and echoes its value; a bare expression echoes its result.")
}
