// Package assemble implements the two-pass symbolic assembler (C3, C4):
// label/data collection in pass 1, instruction encoding in pass 2.
package assemble

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/rv32im/toolchain/internal/lex"
)

// Section names the active assembly section, mirroring the teacher's
// string-keyed section table.
type Section string

const (
	SectionText Section = ".text"
	SectionData Section = ".data"
)

const (
	textBase = 0x00000000
	dataBase = 0x10000000
)

// InstrLine is an assembler-internal "instruction line" (§3):
// address, mnemonic, operand list and the original source text.
type InstrLine struct {
	Addr     uint32
	Mnemonic string
	Operands []string
	Source   string
}

// Program is the result of pass 1: the symbol table, the data segment
// byte map, and the stream of collected instruction lines pass 2 will
// encode.
type Program struct {
	Symbols   map[string]uint32
	Data      map[uint32]byte
	TextBytes uint32 // size of the text section in bytes
	Lines     []InstrLine
}

// AssembledWord pairs an encoded instruction with its source line, for
// listing emission (§4.2).
type AssembledWord struct {
	Addr   uint32
	Word   uint32
	Source string
	Disasm string
}

// Result is the full output of assembly: the encoded text stream plus
// the data segment, ready for listing.Write.
type Result struct {
	Words []AssembledWord
	Data  map[uint32]byte
	// EndOfText is the address one past the last instruction word,
	// where the sentinel line is emitted (§4.2).
	EndOfText uint32
}

// Assemble runs pass 1 then pass 2 over src, logging AssemblyErrors to
// logger and continuing (§7) so the listing stays aligned by
// instruction count.
func Assemble(src io.Reader, logger *log.Logger) (*Result, error) {
	lines, err := ReadLines(src)
	if err != nil {
		return nil, err
	}
	prog, err := Pass1(lines, logger)
	if err != nil {
		return nil, err
	}
	return Pass2(prog, logger), nil
}

// ReadLines reads src line by line, applying lex.CleanLine and
// dropping lines that end up empty.
func ReadLines(src io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(src)
	var lines []string
	for scanner.Scan() {
		line := lex.CleanLine(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("assemble: reading source: %w", err)
	}
	return lines, nil
}

// Pass1 streams cleaned source lines, tracking the active section and
// address counters, interning labels and materializing data directives
// (§4.2 "Pass 1").
func Pass1(lines []string, logger *log.Logger) (*Program, error) {
	prog := &Program{
		Symbols: make(map[string]uint32),
		Data:    make(map[uint32]byte),
	}

	section := SectionText
	textAddr := uint32(textBase)
	dataAddr := uint32(dataBase)

	for _, line := range lines {
		toks := lex.Fields(line)
		if len(toks) == 0 {
			continue
		}

		if label, ok := lex.IsLabelDecl(toks[0]); ok {
			addr := textAddr
			if section == SectionData {
				addr = dataAddr
			}
			prog.Symbols[label] = addr
			toks = toks[1:]
			if len(toks) == 0 {
				continue
			}
		}

		switch toks[0] {
		case ".text":
			section = SectionText
			continue
		case ".data":
			section = SectionData
			continue
		case ".byte":
			dataAddr = emitInts(prog.Data, dataAddr, toks[1:], 1, logger)
			continue
		case ".half":
			dataAddr = emitInts(prog.Data, dataAddr, toks[1:], 2, logger)
			continue
		case ".word":
			dataAddr = emitInts(prog.Data, dataAddr, toks[1:], 4, logger)
			continue
		case ".dword":
			dataAddr = emitInts(prog.Data, dataAddr, toks[1:], 8, logger)
			continue
		case ".asciz":
			dataAddr = emitAsciz(prog.Data, dataAddr, line, logger)
			continue
		}

		// an instruction line
		prog.Lines = append(prog.Lines, InstrLine{
			Addr:     textAddr,
			Mnemonic: lex.Mnemonic(toks[0]),
			Operands: toks[1:],
			Source:   line,
		})
		textAddr += 4
	}

	prog.TextBytes = textAddr - textBase
	return prog, nil
}

func emitInts(data map[uint32]byte, addr uint32, operands []string, width int, logger *log.Logger) uint32 {
	for _, op := range operands {
		val, err := lex.ParseImmediate(op)
		if err != nil {
			logger.Printf("assemble: %v", err)
			val = 0
		}
		u := uint64(val)
		for i := 0; i < width; i++ {
			data[addr+uint32(i)] = byte(u >> (8 * i))
		}
		addr += uint32(width)
	}
	return addr
}

func emitAsciz(data map[uint32]byte, addr uint32, line string, logger *log.Logger) uint32 {
	start := strings.IndexByte(line, '"')
	end := strings.LastIndexByte(line, '"')
	if start < 0 || end <= start {
		logger.Printf("assemble: malformed .asciz operand in %q", line)
		return addr
	}
	str := line[start+1 : end]
	str = strings.ReplaceAll(str, `\n`, "\n")
	str = strings.ReplaceAll(str, `\0`, "\x00")
	for i := 0; i < len(str); i++ {
		data[addr] = str[i]
		addr++
	}
	data[addr] = 0
	addr++
	return addr
}
