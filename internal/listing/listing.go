// Package listing implements the machine-code listing's two
// directions: emitting it from an assembled program (§4.2's output
// format) and parsing it back into the simulator's segmented memory
// (C5, §4.3).
package listing

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/rv32im/toolchain/internal/assemble"
	"github.com/rv32im/toolchain/internal/machine"
)

// EndOfText is the sentinel token written after the last instruction
// line and recognized (but skipped) by the loader (§4.2, §4.3).
const EndOfText = "<END_OF_TEXT>"

// Write emits res in the listing format of §4.2: one line per
// instruction (`0x<addr> 0x<word> , <disasm> # <bits>`), the
// end-of-text sentinel, then one line per data byte.
func Write(w io.Writer, res *assemble.Result) error {
	bw := bufio.NewWriter(w)
	for _, word := range res.Words {
		_, err := fmt.Fprintf(bw, "0x%08x 0x%08x , %s # %032b\n",
			word.Addr, word.Word, word.Disasm, word.Word)
		if err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "0x%08x %s\n", res.EndOfText, EndOfText); err != nil {
		return err
	}

	addrs := make([]uint32, 0, len(res.Data))
	for addr := range res.Data {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		if _, err := fmt.Fprintf(bw, "0x%08x 0x%02x\n", addr, res.Data[addr]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load parses a listing (the assembler's own output, or any
// equivalent) and populates a fresh Memory's three segments (C5,
// §4.3). Malformed lines are ParseMalformed errors (§7): logged and
// skipped, never fatal.
func Load(r io.Reader, logger *log.Logger) (*machine.Memory, error) {
	mem := machine.NewMemory()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if idx := strings.Index(line, "#"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		toks := strings.Fields(line)
		if len(toks) < 2 {
			logger.Printf("listing: skipping malformed line %q", line)
			continue
		}
		addrTok, dataTok := toks[0], strings.TrimSuffix(toks[1], ",")

		if strings.HasPrefix(dataTok, "<") || strings.HasPrefix(dataTok, "t") {
			continue // sentinel or legacy tag
		}

		addr, err := parseHex32(addrTok)
		if err != nil {
			logger.Printf("listing: skipping line with bad address %q: %v", addrTok, err)
			continue
		}
		data, err := parseHexUint(dataTok)
		if err != nil {
			logger.Printf("listing: skipping line with bad data %q: %v", dataTok, err)
			continue
		}

		route(mem, addr, uint32(data))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("listing: reading: %w", err)
	}
	return mem, nil
}

// route stores a parsed (address, data) pair into the segment
// dictated by address range (§4.3):
//   - < 0x10000000: instruction map, full 32-bit word.
//   - < 0x50000000: data segment, four little-endian bytes.
//   - otherwise: stack segment, four little-endian bytes.
func route(mem *machine.Memory, addr, data uint32) {
	switch {
	case addr < machine.DataBase:
		mem.LoadInstruction(addr, data)
	case addr < machine.StackBase:
		for i := uint32(0); i < 4; i++ {
			mem.Data[addr+i] = byte(data >> (8 * i))
		}
	default:
		for i := uint32(0); i < 4; i++ {
			mem.Stack[addr+i] = byte(data >> (8 * i))
		}
	}
}

func parseHex32(tok string) (uint32, error) {
	v, err := parseHexUint(tok)
	return uint32(v), err
}

func parseHexUint(tok string) (uint64, error) {
	tok = strings.TrimPrefix(tok, "0x")
	tok = strings.TrimPrefix(tok, "0X")
	return strconv.ParseUint(tok, 16, 64)
}
