// Command rvasm is the assembler CLI (§6): rvasm <input.s> <output.mc>.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rv32im/toolchain/internal/assemble"
	"github.com/rv32im/toolchain/internal/listing"
)

func main() {
	dumpSymbols := flag.Bool("symbols", false, "print the symbol table after assembly")
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: rvasm [--symbols] <input.s> <output.mc>")
		os.Exit(1)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	logger := log.New(os.Stderr, "rvasm: ", 0)

	in, err := os.Open(inputPath)
	if err != nil {
		logger.Printf("opening %s: %v", inputPath, err)
		os.Exit(1)
	}
	defer in.Close()

	lines, err := assemble.ReadLines(in)
	if err != nil {
		logger.Printf("reading %s: %v", inputPath, err)
		os.Exit(1)
	}

	prog, err := assemble.Pass1(lines, logger)
	if err != nil {
		logger.Printf("pass 1: %v", err)
		os.Exit(1)
	}
	res := assemble.Pass2(prog, logger)

	out, err := os.Create(outputPath)
	if err != nil {
		logger.Printf("opening %s: %v", outputPath, err)
		os.Exit(1)
	}
	defer out.Close()

	if err := listing.Write(out, res); err != nil {
		logger.Printf("writing %s: %v", outputPath, err)
		os.Exit(1)
	}

	if *dumpSymbols {
		for label, addr := range prog.Symbols {
			fmt.Printf("%s -> 0x%08x\n", label, addr)
		}
	}

	os.Exit(0)
}
