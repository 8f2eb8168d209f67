// Package main implements the stmify CLI tool.
//
// The stmify tool provides automatic STM instrumentation for Go programs
// without requiring a custom toolchain. It works by:
//
//  1. Parsing Go source files using go/ast
//  2. Rewriting accesses to //stm:shared words inside stm.Atomic blocks
//     into tx.Load / tx.Store calls
//  3. Linking the gostm runtime into the target module's go.mod
//
// Usage:
//
//	stmify instrument main.go        # Print instrumented source
//	stmify instrument -o out *.go    # Write instrumented files to out/
//	stmify link [go.mod]             # Require the runtime in a module
//
// Instrumentation is source-to-source: the output is ordinary Go that builds
// with the standard toolchain.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "instrument":
		instrumentCommand(os.Args[2:])
	case "link":
		linkCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("stmify version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`stmify - Pure-Go STM instrumentation tool

USAGE:
    stmify <command> [arguments]

COMMANDS:
    instrument [-o dir] <files...>   Rewrite shared-word accesses inside
                                     stm.Atomic blocks into tx.Load/tx.Store
    link [go.mod]                    Add the gostm runtime requirement to a
                                     target module file (default ./go.mod)
    version                          Print version information
    help                             Print this help text

MARKING SHARED WORDS:
    Package-level uint64 variables become transactional when annotated:

        //stm:shared
        var counter uint64

    Inside an stm.Atomic closure, reads and writes of annotated words are
    rewritten automatically:

        stm.Atomic(func(tx *stm.Tx) error {
            counter++          // becomes tx.Store(..., tx.Load(...)+1)
            return nil
        })
`)
}
