package assemble

import "fmt"

// AssemblyError covers pass 2's own failures from §7's AssemblyError
// taxonomy: unknown mnemonic, bad operand count, undefined label,
// invalid register. A malformed imm(reg) operand or an unparseable
// literal reaches Pass2 as the plain error returned by package lex
// instead. Pass2 logs every such error alike and emits a zero word; it
// never aborts assembly.
type AssemblyError struct {
	msg string
}

func (e *AssemblyError) Error() string { return e.msg }

func errUnknownMnemonic(m string) error {
	return &AssemblyError{fmt.Sprintf("unknown mnemonic %q", m)}
}

func errBadOperands(m string, want, got int) error {
	return &AssemblyError{fmt.Sprintf("%s: expected %d operands, got %d", m, want, got)}
}

func errBadRegister() error {
	return &AssemblyError{"invalid register name or number"}
}

func errUndefinedLabel(label string) error {
	return &AssemblyError{fmt.Sprintf("undefined label %q", label)}
}
