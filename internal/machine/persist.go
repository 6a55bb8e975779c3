package machine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Checkpoint rewrites instruction.mc, data.mc and stack.mc from
// scratch (C8), reflecting segment contents after the instruction
// that just retired. Each file is written to a temporary path and
// renamed into place, so a crash mid-write never leaves a torn
// checkpoint (§5).
func Checkpoint(m *Machine, dir string) error {
	if err := writeInstructionFile(m.Mem, filepath.Join(dir, "instruction.mc")); err != nil {
		return err
	}
	if err := writeWordFile(m.Mem.Data, filepath.Join(dir, "data.mc")); err != nil {
		return err
	}
	if err := writeWordFile(m.Mem.Stack, filepath.Join(dir, "stack.mc")); err != nil {
		return err
	}
	return nil
}

func writeInstructionFile(mem *Memory, path string) error {
	addrs := make([]uint32, 0, len(mem.Instr))
	for addr := range mem.Instr {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return writeAtomic(path, func(w *bufio.Writer) error {
		for _, addr := range addrs {
			if _, err := fmt.Fprintf(w, "0x%08x  0x%08x\n", addr, mem.Instr[addr]); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeWordFile emits one line per 4-byte-aligned word whose bytes are
// (at least partially) present in seg, missing bytes reading back as
// zero (invariant a).
func writeWordFile(seg map[uint32]byte, path string) error {
	aligned := make(map[uint32]struct{})
	for addr := range seg {
		aligned[addr&^3] = struct{}{}
	}
	addrs := make([]uint32, 0, len(aligned))
	for addr := range aligned {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return writeAtomic(path, func(w *bufio.Writer) error {
		for _, addr := range addrs {
			var word uint32
			for i := uint32(0); i < 4; i++ {
				word |= uint32(seg[addr+i]) << (8 * i)
			}
			if _, err := fmt.Fprintf(w, "0x%08x  0x%08x\n", addr, word); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAtomic(path string, fn func(w *bufio.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("machine: creating %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return fmt.Errorf("machine: writing %s: %w", tmp, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("machine: flushing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("machine: closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("machine: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}
