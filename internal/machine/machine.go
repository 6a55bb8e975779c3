package machine

import (
	"log"

	"github.com/rv32im/toolchain/internal/encoding"
)

// Machine is the single owned aggregate threaded through Step: the
// register file, PC, the textbook datapath latches (§3, kept as named
// fields for trace fidelity though no invariant holds between
// instructions over them per §9), and the segmented memory.
type Machine struct {
	Regs [32]int32
	PC   uint32

	// Datapath latches. Scratch only; §9 notes an implementation may
	// elide these entirely.
	IR  uint32
	RA  uint32
	RB  uint32
	RM  uint32
	RZ  uint32
	RY  uint32
	MDR uint32

	Mem *Memory

	// Retired counts retired instructions; the spec reports a cycle
	// count equal to this value (§1).
	Retired uint64

	Logger *log.Logger

	// OnRetire, if set, runs after every successfully retired
	// instruction (writeback done, PC advanced) — the shared hook used
	// both for the mandatory checkpoint (C8) and for the optional
	// --trace instrumentation (SPEC_FULL.md §"Supplemented features").
	OnRetire func(m *Machine)
}

// NewMachine returns a machine with the initial register state of §6:
// all zero except R[2] = 0x7FFFFFFC, PC = 0.
func NewMachine(mem *Memory, logger *log.Logger) *Machine {
	m := &Machine{Mem: mem, Logger: logger}
	m.Regs[2] = int32(InitialSP)
	return m
}

// HaltReason explains why Run stopped without error.
type HaltReason int

const (
	HaltNone HaltReason = iota
	HaltFetchMiss
	HaltSentinel
)

func (h HaltReason) String() string {
	switch h {
	case HaltFetchMiss:
		return "fetch miss"
	case HaltSentinel:
		return "sentinel instruction"
	default:
		return "none"
	}
}

// Step executes one fetch-decode-execute-writeback-advance cycle
// (§4.5). It returns halted=true with no error for normal termination
// (FetchMiss or the zero-word sentinel, §7); any other error is a bug,
// not a modeled condition, since every error in §7's taxonomy is
// handled internally (logged and skipped or defaulted).
func (m *Machine) Step() (halted bool, reason HaltReason, err error) {
	word, ok := m.Mem.FetchInstruction(m.PC)
	if !ok {
		return true, HaltFetchMiss, nil
	}
	if word == 0x00000000 {
		return true, HaltSentinel, nil
	}
	m.IR = word

	f := encoding.Decode(word)
	pc := m.PC

	// operand select (§4.5)
	if f.Opcode == encoding.OpcodeAUIPC {
		m.RA = pc
	} else {
		m.RA = uint32(m.Regs[f.Rs1])
	}
	if usesImmediateAsRB(f.Opcode) {
		m.RB = uint32(f.Imm)
	} else {
		m.RB = uint32(m.Regs[f.Rs2])
	}
	m.RM = uint32(m.Regs[f.Rs2])

	nextPC := pc + 4
	var rz uint32
	writeback := false

	switch f.Opcode {
	case encoding.OpcodeR:
		rz, err = executeR(f, m.RA, m.RB)
		writeback = true
	case encoding.OpcodeI:
		rz, err = executeI(m.RA, f.Imm, f.Funct3)
		writeback = true
	case encoding.OpcodeLoad:
		addr := m.RA + m.RB
		var val uint32
		val, err = loadValue(m.Mem, f.Funct3, addr)
		if err != nil {
			m.logSkip("load", err)
			val, err = 0, nil
		}
		m.MDR = val
		rz = val
		writeback = true
	case encoding.OpcodeS:
		addr := m.RA + m.RB
		if serr := storeValue(m.Mem, f.Funct3, addr, m.RM); serr != nil {
			m.logSkip("store", serr)
		}
	case encoding.OpcodeB:
		if branchTaken(f.Funct3, m.RA, m.RM) {
			// The encoder folds an extra -4 into branch immediates
			// (§4.2, §9); this +4 is its exact cancellation, so a
			// taken branch lands on the label's real address rather
			// than four bytes short of it.
			nextPC = pc + 4 + uint32(f.Imm)
		}
	case encoding.OpcodeJAL:
		rz = pc + 4
		writeback = true
		// Same -4/+4 cancellation as BRANCH above, resolving the §9
		// open question: JAL must land on the label itself.
		nextPC = pc + 4 + uint32(f.Imm)
	case encoding.OpcodeJALR:
		rz = pc + 4
		writeback = true
		nextPC = (m.RA + m.RB) &^ 1
	case encoding.OpcodeLUI:
		rz = m.RB
		writeback = true
	case encoding.OpcodeAUIPC:
		rz = m.RA + m.RB
		writeback = true
	default:
		m.logSkip("execute", errUnhandledOpcode(f.Opcode))
	}
	if err != nil {
		m.logSkip("execute", err)
		rz, err = 0, nil
	}

	m.RZ = rz
	m.RY = rz
	if writeback && f.Rd != 0 {
		m.Regs[f.Rd] = int32(rz)
	}
	m.Regs[0] = 0

	m.PC = nextPC
	m.Retired++

	if m.OnRetire != nil {
		m.OnRetire(m)
	}
	return false, HaltNone, nil
}

// usesImmediateAsRB reports whether RB is loaded from the immediate
// rather than R[rs2], per §4.5's operand-select table.
func usesImmediateAsRB(opcode encoding.Opcode) bool {
	switch opcode {
	case encoding.OpcodeI, encoding.OpcodeLoad, encoding.OpcodeJALR,
		encoding.OpcodeLUI, encoding.OpcodeS, encoding.OpcodeAUIPC:
		return true
	default:
		return false
	}
}

func (m *Machine) logSkip(stage string, err error) {
	if m.Logger != nil {
		m.Logger.Printf("machine: %s at pc=%#08x: %v", stage, m.PC, err)
	}
}

// Run steps the machine to completion, i.e. until Step reports a
// halt. It is the non-interactive counterpart of the external
// single-step protocol described in §6 (out of scope for this core).
func (m *Machine) Run() (HaltReason, error) {
	for {
		halted, reason, err := m.Step()
		if err != nil {
			return HaltNone, err
		}
		if halted {
			return reason, nil
		}
	}
}
