package machine

import (
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32im/toolchain/internal/encoding"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

func loadProgram(t *testing.T, words ...uint32) *Machine {
	t.Helper()
	mem := NewMemory()
	addr := uint32(0)
	for _, w := range words {
		mem.LoadInstruction(addr, w)
		addr += 4
	}
	return NewMachine(mem, testLogger())
}

// Scenario 1 (§8): addi x1,x0,5 / addi x2,x0,7 / add x3,x1,x2.
func TestScenarioAddImmediates(t *testing.T) {
	m := loadProgram(t,
		encoding.EncodeI(encoding.OpcodeI, 1, 0, 0, 5),
		encoding.EncodeI(encoding.OpcodeI, 2, 0, 0, 7),
		encoding.EncodeR(encoding.OpcodeR, 3, 0, 1, 2, 0x00),
	)
	reason, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, HaltFetchMiss, reason)
	assert.EqualValues(t, 5, m.Regs[1])
	assert.EqualValues(t, 7, m.Regs[2])
	assert.EqualValues(t, 12, m.Regs[3])
}

// Scenario 2 (§8): SRLI fills with zeros, SRAI fills with ones.
func TestScenarioShiftFill(t *testing.T) {
	m := loadProgram(t,
		encoding.EncodeI(encoding.OpcodeI, 1, 0, 0, -1),
		encoding.EncodeI(encoding.OpcodeI, 2, 0x5, 1, 1), // SRLI x2, x1, 1
		encoding.EncodeI(encoding.OpcodeI, 3, 0x5, 1, 1|0x400), // SRAI x3, x1, 1
	)
	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 0x7FFFFFFF, uint32(m.Regs[2]))
	assert.EqualValues(t, -1, m.Regs[3])
}

// Scenario 3 (§8): ten-iteration countdown loop via BNE.
func TestScenarioCountdownLoop(t *testing.T) {
	// addi x1, x0, 10
	// LOOP: addi x1, x1, -1
	// bne x1, x0, LOOP
	mem := NewMemory()
	mem.LoadInstruction(0, encoding.EncodeI(encoding.OpcodeI, 1, 0, 0, 10))
	mem.LoadInstruction(4, encoding.EncodeI(encoding.OpcodeI, 1, 0, 1, -1))
	// branch target is LOOP (addr 4); imm = target - addr - 4 = 4 - 8 - 4 = -8
	mem.LoadInstruction(8, encoding.EncodeSB(encoding.OpcodeB, 0x1, 1, 0, -8))
	m := NewMachine(mem, testLogger())

	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 0, m.Regs[1])
	assert.EqualValues(t, 21, m.Retired) // 1 initial addi + 10 * (addi + bne)
}

// Scenario 4 (§8): lui x1,0x12345 / addi x1,x1,0x678 -> R[1]=0x12345678.
// The addend's top bit is clear, so the §9 open question about signed
// vs. unsigned interpretation of the 12-bit addend doesn't bite here;
// it only would for an addend >= 0x800.
func TestScenarioLUIThenADDI(t *testing.T) {
	m := loadProgram(t,
		encoding.EncodeU(encoding.OpcodeLUI, 1, 0x12345),
		encoding.EncodeI(encoding.OpcodeI, 1, 0, 1, 0x678),
	)
	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 0x12345678, uint32(m.Regs[1]))
}

// Scenario 5 (§8): jal x1, SKIP / addi x2,x0,99 / SKIP: addi x2,x0,7.
func TestScenarioJumpOverInstruction(t *testing.T) {
	mem := NewMemory()
	// jal x1, SKIP: target is addr 8; imm = 8 - 0 - 4 = 4
	mem.LoadInstruction(0, encoding.EncodeUJ(encoding.OpcodeJAL, 1, 4))
	mem.LoadInstruction(4, encoding.EncodeI(encoding.OpcodeI, 2, 0, 0, 99))
	mem.LoadInstruction(8, encoding.EncodeI(encoding.OpcodeI, 2, 0, 0, 7))
	m := NewMachine(mem, testLogger())

	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 7, m.Regs[2])
	assert.EqualValues(t, 4, m.Regs[1]) // address of the skipped instruction
}

// Scenario 6 (§8): load a word written via .data, byte by byte.
func TestScenarioLoadWordFromData(t *testing.T) {
	mem := NewMemory()
	mem.Data[0x10000000] = 0xEF
	mem.Data[0x10000001] = 0xBE
	mem.Data[0x10000002] = 0xAD
	mem.Data[0x10000003] = 0xDE
	mem.LoadInstruction(0, encoding.EncodeU(encoding.OpcodeLUI, 1, 0x10000))
	mem.LoadInstruction(4, encoding.EncodeI(encoding.OpcodeLoad, 2, 0x2, 1, 0))
	m := NewMachine(mem, testLogger())

	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, uint32(m.Regs[2]))
}

// §8 invariant 1: R[0] == 0 after every retired instruction, even if
// something tries to write it.
func TestRegisterZeroStaysZero(t *testing.T) {
	m := loadProgram(t, encoding.EncodeI(encoding.OpcodeI, 0, 0, 0, 123))
	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 0, m.Regs[0])
}

// §8 invariant 4: JALR clears the target's low bit.
func TestJALRClearsLowBit(t *testing.T) {
	mem := NewMemory()
	mem.LoadInstruction(0, encoding.EncodeI(encoding.OpcodeI, 1, 0, 0, 9)) // addi x1,x0,9
	mem.LoadInstruction(4, encoding.EncodeI(encoding.OpcodeJALR, 2, 0, 1, 0))
	mem.LoadInstruction(8, 0) // sentinel at the jalr target (9 &^ 1 == 8)
	m := NewMachine(mem, testLogger())

	halted, reason, err := m.Step()
	require.NoError(t, err)
	assert.False(t, halted)
	halted, reason, err = m.Step()
	require.NoError(t, err)
	assert.False(t, halted)
	assert.EqualValues(t, 8, m.PC) // (9 &^ 1) == 8
	_ = reason
}

// §8 invariant: DIV/REM by zero yields 0, no trap.
func TestDivideByZero(t *testing.T) {
	m := loadProgram(t,
		encoding.EncodeI(encoding.OpcodeI, 1, 0, 0, 10),
		encoding.EncodeR(encoding.OpcodeR, 2, 0x4, 1, 0, 0x01), // DIV x2, x1, x0
		encoding.EncodeR(encoding.OpcodeR, 3, 0x6, 1, 0, 0x01), // REM x3, x1, x0
	)
	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 0, m.Regs[2])
	assert.EqualValues(t, 0, m.Regs[3])
}

// §8 boundary: SLLI x1, x1, 32 behaves like SLLI x1, x1, 0.
func TestShiftAmountMaskedTo5Bits(t *testing.T) {
	m := loadProgram(t,
		encoding.EncodeI(encoding.OpcodeI, 1, 0, 0, 1),
		encoding.EncodeI(encoding.OpcodeI, 1, 0x1, 1, 32),
	)
	_, err := m.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Regs[1])
}

// §7 MemoryRegionInvalid: a store into the instruction region is
// logged and skipped, not fatal.
func TestStoreIntoInstructionRegionIsSkipped(t *testing.T) {
	mem := NewMemory()
	mem.LoadInstruction(0, encoding.EncodeS(encoding.OpcodeS, 0x2, 0, 0, 0))
	m := NewMachine(mem, testLogger())
	halted, _, err := m.Step()
	require.NoError(t, err)
	assert.False(t, halted)
}

// The sentinel word 0x00000000 halts normally (§4.5, §7).
func TestSentinelHalts(t *testing.T) {
	m := loadProgram(t, 0)
	reason, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, HaltSentinel, reason)
	assert.EqualValues(t, 0, m.Retired)
}

// Initial state matches §6: all registers zero except sp, PC zero.
func TestInitialState(t *testing.T) {
	m := loadProgram(t, 0)
	assert.EqualValues(t, 0, m.PC)
	assert.EqualValues(t, InitialSP, uint32(m.Regs[2]))
	for i, v := range m.Regs {
		if i == 2 {
			continue
		}
		assert.EqualValuesf(t, 0, v, "R[%d] should start zero", i)
	}
}
