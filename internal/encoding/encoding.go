// Package encoding implements the bit-exact RISC-V RV32IM format
// encoders and their inverse decoder (§4.1, §4.4). Every bit placement
// here is fixed by the RISC-V manual; this file is the single contract
// shared by the assembler and the simulator.
package encoding

// Opcode is the 7-bit opcode field common to every format.
type Opcode uint8

const (
	OpcodeR     Opcode = 0x33 // register-register arithmetic
	OpcodeI     Opcode = 0x13 // immediate arithmetic
	OpcodeLoad  Opcode = 0x03 // loads
	OpcodeS     Opcode = 0x23 // stores
	OpcodeB     Opcode = 0x63 // branches
	OpcodeLUI   Opcode = 0x37
	OpcodeAUIPC Opcode = 0x17
	OpcodeJAL   Opcode = 0x6F
	OpcodeJALR  Opcode = 0x67
)

// Fields is the decoded form of an instruction (§3 "Decoded
// instruction"). For I-type/load/JALR, Rs2 and Funct7 are always
// zeroed so downstream code cannot mistake them for live values.
type Fields struct {
	Opcode Opcode
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8
	Imm    int32
}

func mask(v uint32, bits uint) uint32 {
	return v & ((1 << bits) - 1)
}

// EncodeR produces an R-type word: opcode, rd, funct3, rs1, rs2, funct7.
func EncodeR(opcode Opcode, rd, funct3, rs1, rs2, funct7 uint8) uint32 {
	var w uint32
	w |= mask(uint32(opcode), 7)
	w |= mask(uint32(rd), 5) << 7
	w |= mask(uint32(funct3), 3) << 12
	w |= mask(uint32(rs1), 5) << 15
	w |= mask(uint32(rs2), 5) << 20
	w |= mask(uint32(funct7), 7) << 25
	return w
}

// EncodeI produces an I-type word (also used for loads and JALR):
// opcode, rd, funct3, rs1, imm[11:0].
func EncodeI(opcode Opcode, rd, funct3, rs1 uint8, imm int32) uint32 {
	var w uint32
	w |= mask(uint32(opcode), 7)
	w |= mask(uint32(rd), 5) << 7
	w |= mask(uint32(funct3), 3) << 12
	w |= mask(uint32(rs1), 5) << 15
	w |= mask(uint32(imm), 12) << 20
	return w
}

// EncodeS produces an S-type (store) word: opcode, imm[4:0], funct3,
// rs1, rs2, imm[11:5].
func EncodeS(opcode Opcode, funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	var w uint32
	w |= mask(uint32(opcode), 7)
	w |= mask(u, 5) << 7
	w |= mask(uint32(funct3), 3) << 12
	w |= mask(uint32(rs1), 5) << 15
	w |= mask(uint32(rs2), 5) << 20
	w |= mask(u>>5, 7) << 25
	return w
}

// EncodeSB produces a branch word: opcode, imm[11], imm[4:1], funct3,
// rs1, rs2, imm[10:5], imm[12]. imm[0] is implicitly zero.
func EncodeSB(opcode Opcode, funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm)
	var w uint32
	w |= mask(uint32(opcode), 7)
	w |= mask(u>>11, 1) << 7
	w |= mask(u>>1, 4) << 8
	w |= mask(uint32(funct3), 3) << 12
	w |= mask(uint32(rs1), 5) << 15
	w |= mask(uint32(rs2), 5) << 20
	w |= mask(u>>5, 6) << 25
	w |= mask(u>>12, 1) << 31
	return w
}

// EncodeU produces a U-type word: opcode, rd, imm[19:0]<<12.
func EncodeU(opcode Opcode, rd uint8, imm int32) uint32 {
	var w uint32
	w |= mask(uint32(opcode), 7)
	w |= mask(uint32(rd), 5) << 7
	w |= mask(uint32(imm), 20) << 12
	return w
}

// EncodeUJ produces a jump word: opcode, rd, imm[19:12], imm[11],
// imm[10:1], imm[20]. imm[0] is implicitly zero.
func EncodeUJ(opcode Opcode, rd uint8, imm int32) uint32 {
	u := uint32(imm)
	var w uint32
	w |= mask(uint32(opcode), 7)
	w |= mask(uint32(rd), 5) << 7
	w |= mask(u>>12, 8) << 12
	w |= mask(u>>11, 1) << 20
	w |= mask(u>>1, 10) << 21
	w |= mask(u>>20, 1) << 31
	return w
}

// signExtend sign-extends the low `bits` bits of v to a full int32.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// Decode inverts the encoders above, reconstructing every field
// (§4.4). For opcodes 0x13, 0x03 and 0x67, Rs2 and Funct7 are zeroed.
func Decode(word uint32) Fields {
	opcode := Opcode(word & 0x7F)
	rd := uint8((word >> 7) & 0x1F)
	funct3 := uint8((word >> 12) & 0x7)
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct7 := uint8((word >> 25) & 0x7F)

	f := Fields{Opcode: opcode, Rd: rd, Rs1: rs1, Funct3: funct3}

	switch opcode {
	case OpcodeR:
		f.Rs2 = rs2
		f.Funct7 = funct7
	case OpcodeI, OpcodeLoad, OpcodeJALR:
		imm := (word >> 20) & 0xFFF
		f.Imm = signExtend(imm, 12)
	case OpcodeS:
		imm := ((word >> 25) & 0x7F << 5) | ((word >> 7) & 0x1F)
		f.Imm = signExtend(imm, 12)
		f.Rs2 = rs2
	case OpcodeB:
		imm := (((word >> 31) & 0x1) << 12) |
			(((word >> 7) & 0x1) << 11) |
			(((word >> 25) & 0x3F) << 5) |
			(((word >> 8) & 0xF) << 1)
		f.Imm = signExtend(imm, 13)
		f.Rs2 = rs2
	case OpcodeLUI, OpcodeAUIPC:
		imm := (word >> 12) & 0xFFFFF
		f.Imm = int32(imm) << 12
	case OpcodeJAL:
		imm := (((word >> 31) & 0x1) << 20) |
			(((word >> 12) & 0xFF) << 12) |
			(((word >> 20) & 0x1) << 11) |
			(((word >> 21) & 0x3FF) << 1)
		f.Imm = signExtend(imm, 21)
	}
	return f
}
