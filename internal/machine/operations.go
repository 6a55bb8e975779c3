package machine

import (
	"fmt"

	"github.com/rv32im/toolchain/internal/encoding"
)

// executeR implements the R-type ALU table (§4.5): funct3/funct7
// dispatch for ADD SUB MUL XOR DIV OR REM AND SLL SLT SRL SRA.
func executeR(f encoding.Fields, ra, rb uint32) (uint32, error) {
	a, b := int32(ra), int32(rb)
	switch {
	case f.Funct3 == 0x0 && f.Funct7 == 0x00:
		return uint32(a + b), nil // ADD
	case f.Funct3 == 0x0 && f.Funct7 == 0x20:
		return uint32(a - b), nil // SUB
	case f.Funct3 == 0x0 && f.Funct7 == 0x01:
		return uint32(a * b), nil // MUL
	case f.Funct3 == 0x4 && f.Funct7 == 0x00:
		return ra ^ rb, nil // XOR
	case f.Funct3 == 0x4 && f.Funct7 == 0x01:
		return uint32(divOrZero(a, b)), nil // DIV
	case f.Funct3 == 0x6 && f.Funct7 == 0x00:
		return ra | rb, nil // OR
	case f.Funct3 == 0x6 && f.Funct7 == 0x01:
		return uint32(remOrZero(a, b)), nil // REM
	case f.Funct3 == 0x7 && f.Funct7 == 0x00:
		return ra & rb, nil // AND
	case f.Funct3 == 0x1 && f.Funct7 == 0x00:
		return ra << (rb & 0x1F), nil // SLL
	case f.Funct3 == 0x2 && f.Funct7 == 0x00:
		return boolToWord(a < b), nil // SLT
	case f.Funct3 == 0x5 && f.Funct7 == 0x00:
		return ra >> (rb & 0x1F), nil // SRL (logical, zero-fill)
	case f.Funct3 == 0x5 && f.Funct7 == 0x20:
		return uint32(a >> (rb & 0x1F)), nil // SRA (arithmetic, sign-fill)
	default:
		return 0, fmt.Errorf("machine: unhandled R-type funct3=%#x funct7=%#x", f.Funct3, f.Funct7)
	}
}

// executeI implements the I-type ALU table (§4.5): ADDI ANDI ORI XORI
// SLTI SLLI SRLI/SRAI. SRLI and SRAI share funct3=5 and are told apart
// by the top 7 bits of the raw 12-bit immediate, exactly as the
// encoder packs them in (§4.2, §9): 0 for SRLI, 0x20 for SRAI.
func executeI(ra uint32, imm int32, funct3 uint8) (uint32, error) {
	a := int32(ra)
	switch funct3 {
	case 0x0:
		return uint32(a + imm), nil // ADDI
	case 0x7:
		return ra & uint32(imm), nil // ANDI
	case 0x6:
		return ra | uint32(imm), nil // ORI
	case 0x4:
		return ra ^ uint32(imm), nil // XORI
	case 0x2:
		return boolToWord(a < imm), nil // SLTI
	case 0x1:
		shamt := uint32(imm) & 0x1F
		return ra << shamt, nil // SLLI
	case 0x5:
		raw := uint32(imm) & 0xFFF
		shamt := raw & 0x1F
		top := (raw >> 5) & 0x7F
		if top == 0x20 {
			return uint32(a >> shamt), nil // SRAI
		}
		return ra >> shamt, nil // SRLI
	default:
		return 0, fmt.Errorf("machine: unhandled I-type funct3=%#x", funct3)
	}
}

func divOrZero(a, b int32) int32 {
	if b == 0 {
		return 0 // DivideByZero (§7): no trap
	}
	return a / b
}

func remOrZero(a, b int32) int32 {
	if b == 0 {
		return 0
	}
	return a % b
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// loadValue implements the LOAD table (§4.5): LB (sign-extended byte),
// LH (sign-extended little-endian half), LW (word).
func loadValue(mem *Memory, funct3 uint8, addr uint32) (uint32, error) {
	switch funct3 {
	case 0x0:
		b, err := mem.ReadByte(addr)
		if err != nil {
			return 0, err
		}
		return uint32(int32(int8(b))), nil
	case 0x1:
		h, err := mem.ReadHalf(addr)
		if err != nil {
			return 0, err
		}
		return uint32(int32(int16(h))), nil
	case 0x2:
		return mem.ReadWord(addr)
	default:
		return 0, fmt.Errorf("machine: unsupported load width funct3=%#x", funct3)
	}
}

// storeValue implements the STORE table (§4.5): SB, SH, SW.
func storeValue(mem *Memory, funct3 uint8, addr uint32, rm uint32) error {
	switch funct3 {
	case 0x0:
		return mem.WriteByte(addr, byte(rm))
	case 0x1:
		return mem.WriteHalf(addr, uint16(rm))
	case 0x2:
		return mem.WriteWord(addr, rm)
	default:
		return fmt.Errorf("machine: unsupported store width funct3=%#x", funct3)
	}
}

// branchTaken implements the BRANCH comparator table (§4.5): BEQ, BNE,
// BLT (signed), BGE (signed). The comparator reads RA and RM, not RB,
// per §4.5/§9 since RB is overloaded with the immediate for several
// opcodes.
func branchTaken(funct3 uint8, ra, rm uint32) bool {
	a, b := int32(ra), int32(rm)
	switch funct3 {
	case 0x0:
		return ra == rm // BEQ
	case 0x1:
		return ra != rm // BNE
	case 0x4:
		return a < b // BLT
	case 0x5:
		return a >= b // BGE
	default:
		return false
	}
}
