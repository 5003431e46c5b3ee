// Command loxvm is the front end to the Lox bytecode interpreter: a
// script runner when given -file, an interactive REPL otherwise.
//
// Usage:
//
//	loxvm -file program.lox
//	loxvm
//
// Exit codes follow the convention this interpreter was specified
// against: 0 success, 65 compile error, 70 runtime error, 74 file read
// failure.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"loxvm/pkg/compiler"
	"loxvm/pkg/vm"
)

const (
	exitOK           = 0
	exitCompileError = 65
	exitRuntimeError = 70
	exitFileError    = 74
)

func main() {
	var file string
	flag.StringVar(&file, "file", "", "run the given Lox source file instead of starting the REPL")
	flag.StringVar(&file, "f", "", "shorthand for -file")
	flag.Parse()

	if file != "" {
		os.Exit(runFile(file))
	}
	runREPL()
}

func runFile(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFileError
	}

	fn, err := compiler.Compile(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCompileError
	}

	machine := vm.New()
	if err := machine.Interpret(fn); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeError
	}
	return exitOK
}

// runREPL reads one line at a time, compiling and running each in
// isolation. Per the reference REPL policy, the VM is fully reset —
// objects, stacks, and globals alike — after every line, so each input
// starts from a clean slate rather than accumulating state the way a
// typical REPL would.
func runREPL() {
	rl, err := readline.New("> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	machine := vm.New()

	for {
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) {
			return
		}
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == "exit" {
			return
		}

		fn, err := compiler.Compile(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			machine.Reset(true)
			continue
		}

		if err := machine.Interpret(fn); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		machine.Reset(true)
	}
}
