package machine

import (
	"fmt"

	"github.com/rv32im/toolchain/internal/encoding"
)

func errUnhandledOpcode(opcode encoding.Opcode) error {
	return fmt.Errorf("machine: unhandled opcode %#02x", opcode)
}
