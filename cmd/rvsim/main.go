// Command rvsim is the simulator CLI (§6): rvsim <input.mc>.
//
// The interactive single-step protocol of §6 and the console trace
// formatting it drives are external collaborators, out of scope for
// this core (§1). This binary runs to completion; --trace substitutes
// a flat per-instruction log for the interactive prompt, and --dir
// controls where the mandatory per-cycle checkpoint files (C8) land.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rv32im/toolchain/internal/listing"
	"github.com/rv32im/toolchain/internal/machine"
)

func main() {
	trace := flag.Bool("trace", false, "print one line per retired instruction")
	dir := flag.String("dir", ".", "directory for instruction.mc/data.mc/stack.mc checkpoints")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: rvsim [--trace] [--dir DIR] <input.mc>")
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	logger := log.New(os.Stderr, "rvsim: ", 0)

	in, err := os.Open(inputPath)
	if err != nil {
		logger.Printf("opening %s: %v", inputPath, err)
		os.Exit(1)
	}
	defer in.Close()

	mem, err := listing.Load(in, logger)
	if err != nil {
		logger.Printf("loading %s: %v", inputPath, err)
		os.Exit(1)
	}

	m := machine.NewMachine(mem, logger)
	m.OnRetire = func(m *machine.Machine) {
		if *trace {
			fmt.Printf("pc=0x%08x word=0x%08x R[%d]=%d\n", m.PC, m.IR, decodeRd(m.IR), currentRd(m))
		}
		if err := machine.Checkpoint(m, *dir); err != nil {
			logger.Printf("checkpoint: %v", err)
		}
	}

	reason, err := m.Run()
	if err != nil {
		logger.Printf("run: %v", err)
		os.Exit(1)
	}

	printRegisters(m)
	_ = reason
	os.Exit(0)
}

func printRegisters(m *machine.Machine) {
	for i, v := range m.Regs {
		fmt.Printf("x%-3d = 0x%08x (%d)\n", i, uint32(v), v)
	}
}

// decodeRd and currentRd support the --trace instrumentation only;
// they don't feed the core's execution semantics.
func decodeRd(word uint32) uint8 { return uint8((word >> 7) & 0x1F) }
func currentRd(m *machine.Machine) int32 {
	return m.Regs[decodeRd(m.IR)]
}
