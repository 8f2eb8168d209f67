package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kolkov/gostm/cmd/stmify/instrument"
)

// instrumentCommand implements `stmify instrument`.
//
// With -o, instrumented files are written into the given directory under
// their base names; without it, instrumented source goes to stdout.
func instrumentCommand(args []string) {
	fs := flag.NewFlagSet("instrument", flag.ExitOnError)
	outDir := fs.String("o", "", "directory to write instrumented files to (default: stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "stmify instrument: no input files")
		os.Exit(1)
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "stmify instrument: %v\n", err)
			os.Exit(1)
		}
	}

	for _, file := range files {
		result, err := instrument.InstrumentFile(file, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stmify instrument: %v\n", err)
			os.Exit(1)
		}

		if *outDir == "" {
			fmt.Print(result.Code)
			continue
		}

		out := filepath.Join(*outDir, filepath.Base(file))
		if err := os.WriteFile(out, []byte(result.Code), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "stmify instrument: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d shared words, %d loads, %d stores -> %s\n",
			file, result.Stats.SharedWords, result.Stats.Loads, result.Stats.Stores, out)
	}
}
