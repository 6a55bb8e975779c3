// Package lex provides the lexical utilities shared by both assembler
// passes: line cleanup, tokenizing, register-name parsing and immediate
// parsing.
package lex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var spaceCollapse = regexp.MustCompile(`\s+`)

// CleanLine trims a source line, collapses internal whitespace, and
// strips any trailing "#" comment. It returns "" for lines that are
// blank or pure comments.
func CleanLine(raw string) string {
	line := strings.TrimSpace(raw)
	if line == "" {
		return ""
	}
	if idx := strings.Index(line, "#"); idx != -1 {
		line = strings.TrimSpace(line[:idx])
	}
	line = spaceCollapse.ReplaceAllString(line, " ")
	return line
}

// Fields splits a cleaned line into whitespace/comma separated tokens,
// e.g. "add x1, x2, x3" -> ["add", "x1", "x2", "x3"].
func Fields(line string) []string {
	line = strings.ReplaceAll(line, ",", " ")
	return strings.Fields(line)
}

// regNames maps every accepted spelling of a register to its number.
var regNames = buildRegNames()

func buildRegNames() map[string]uint8 {
	m := make(map[string]uint8, 64)
	for i := 0; i < 32; i++ {
		m[fmt.Sprintf("x%d", i)] = uint8(i)
	}
	return m
}

// ParseRegister parses a register operand spelled "x0".."x31". It
// returns ok=false for anything else; callers are responsible for
// turning that into an AssemblyError (§7).
func ParseRegister(tok string) (reg uint8, ok bool) {
	reg, ok = regNames[strings.ToLower(strings.TrimSpace(tok))]
	return reg, ok
}

// ParseImmediate parses a decimal or 0x/0X-prefixed hexadecimal
// literal, optionally negative, per §6. Labels are resolved by the
// caller before this is reached.
func ParseImmediate(tok string) (int64, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, fmt.Errorf("lex: empty immediate")
	}
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	} else if strings.HasPrefix(tok, "+") {
		tok = tok[1:]
	}
	base := 10
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		base = 16
		tok = tok[2:]
	}
	val, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		return 0, fmt.Errorf("lex: %q is not a valid immediate: %w", tok, err)
	}
	if neg {
		val = -val
	}
	return val, nil
}

// SplitMemOperand splits the "imm(reg)" syntax used by loads, stores
// and JALR into its two pieces. A malformed operand (mismatched or
// missing parens) is an AssemblyError (§7).
func SplitMemOperand(tok string) (imm string, reg string, err error) {
	open := strings.IndexByte(tok, '(')
	close := strings.IndexByte(tok, ')')
	if open < 0 || close < 0 || close <= open || close != len(tok)-1 {
		return "", "", fmt.Errorf("lex: %q is not a valid imm(reg) operand", tok)
	}
	return strings.TrimSpace(tok[:open]), strings.TrimSpace(tok[open+1 : close]), nil
}

// Mnemonic case-folds an instruction mnemonic the way pass 2 dispatches
// on it: uppercased, matching §4.2's dispatch tables.
func Mnemonic(tok string) string {
	return strings.ToUpper(strings.TrimSpace(tok))
}

// IsLabelDecl reports whether tok is a "label:" declaration and, if so,
// returns the bare label name.
func IsLabelDecl(tok string) (label string, ok bool) {
	if strings.HasSuffix(tok, ":") {
		return strings.TrimSuffix(tok, ":"), true
	}
	return "", false
}
