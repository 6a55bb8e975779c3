package listing

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32im/toolchain/internal/assemble"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

// Write then Load round-trips an assembled program's instruction words
// and data bytes through the listing format (§4.2/§4.3).
func TestWriteLoadRoundTrip(t *testing.T) {
	res := &assemble.Result{
		Words: []assemble.AssembledWord{
			{Addr: 0, Word: 0x00500093, Disasm: "addi x1, x0, 5"},
			{Addr: 4, Word: 0x00700113, Disasm: "addi x2, x0, 7"},
		},
		Data:      map[uint32]byte{0x10000000: 0xEF, 0x10000001: 0xBE, 0x10000002: 0xAD, 0x10000003: 0xDE},
		EndOfText: 8,
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res))
	assert.True(t, strings.Contains(buf.String(), EndOfText))

	mem, err := Load(&buf, testLogger())
	require.NoError(t, err)

	w, ok := mem.FetchInstruction(0)
	require.True(t, ok)
	assert.EqualValues(t, 0x00500093, w)
	w, ok = mem.FetchInstruction(4)
	require.True(t, ok)
	assert.EqualValues(t, 0x00700113, w)

	word, err := mem.ReadWord(0x10000000)
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, word)
}

// Load routes instruction-region lines to Memory.Instr (full word) and
// data/stack-region lines to the byte maps (four little-endian bytes
// per line), per §4.3's address-range routing.
func TestLoadRoutesByAddressRange(t *testing.T) {
	src := "0x00000000 0x00000013\n" +
		"0x10000000 0x000000ff\n" +
		"0x50000000 0x0000002a\n"
	mem, err := Load(strings.NewReader(src), testLogger())
	require.NoError(t, err)

	w, ok := mem.FetchInstruction(0)
	require.True(t, ok)
	assert.EqualValues(t, 0x13, w)

	assert.Equal(t, byte(0xff), mem.Data[0x10000000])
	assert.Equal(t, byte(0x2a), mem.Stack[0x50000000])
}

// Malformed and sentinel/comment lines are skipped, not fatal (§7
// ParseMalformed).
func TestLoadSkipsMalformedAndSentinelLines(t *testing.T) {
	src := "# a comment\n" +
		"\n" +
		"not a valid line at all\n" +
		"0x00000000 " + EndOfText + "\n" +
		"0x00000004 0x00000013\n"
	mem, err := Load(strings.NewReader(src), testLogger())
	require.NoError(t, err)

	_, ok := mem.FetchInstruction(0)
	assert.False(t, ok) // the sentinel line names no real instruction
	w, ok := mem.FetchInstruction(4)
	require.True(t, ok)
	assert.EqualValues(t, 0x13, w)
}

func TestLoadSkipsBadAddressAndData(t *testing.T) {
	mem, err := Load(strings.NewReader("0xZZZZ 0x13\n0x4 0xGGGG\n"), testLogger())
	require.NoError(t, err)
	assert.Empty(t, mem.Instr)
}
