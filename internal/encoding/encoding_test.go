package encoding

import "testing"

// The TestRoundTrip* tests assert decode(encode(fields)) == fields for
// every format (§8 "Round-trip laws").
func TestRoundTripR(t *testing.T) {
	w := EncodeR(OpcodeR, 5, 0x0, 6, 7, 0x20) // SUB x5, x6, x7
	got := Decode(w)
	want := Fields{Opcode: OpcodeR, Rd: 5, Funct3: 0x0, Rs1: 6, Rs2: 7, Funct7: 0x20}
	if got != want {
		t.Fatalf("Decode(EncodeR(...)) = %+v, want %+v", got, want)
	}
}

func TestRoundTripI(t *testing.T) {
	w := EncodeI(OpcodeI, 1, 0x0, 2, -5)
	got := Decode(w)
	if got.Rd != 1 || got.Rs1 != 2 || got.Imm != -5 || got.Rs2 != 0 || got.Funct7 != 0 {
		t.Fatalf("unexpected decode: %+v", got)
	}
}

func TestRoundTripS(t *testing.T) {
	w := EncodeS(OpcodeS, 0x2, 3, 4, -2048)
	got := Decode(w)
	if got.Rs1 != 3 || got.Rs2 != 4 || got.Imm != -2048 {
		t.Fatalf("unexpected decode: %+v", got)
	}
}

func TestRoundTripSB(t *testing.T) {
	for _, imm := range []int32{-4096, -4, 0, 4, 4094} {
		w := EncodeSB(OpcodeB, 0x1, 1, 2, imm)
		got := Decode(w)
		if got.Imm != imm {
			t.Fatalf("EncodeSB/Decode round trip broke for imm=%d: got %d", imm, got.Imm)
		}
	}
}

func TestRoundTripU(t *testing.T) {
	w := EncodeU(OpcodeLUI, 1, 0x12345)
	got := Decode(w)
	want := int32(0x12345) << 12
	if got.Imm != want {
		t.Fatalf("Decode(EncodeU(...)).Imm = %#x, want %#x", got.Imm, want)
	}
}

func TestRoundTripUJ(t *testing.T) {
	for _, imm := range []int32{-1048576, -2, 0, 2, 1048574} {
		w := EncodeUJ(OpcodeJAL, 1, imm)
		got := Decode(w)
		if got.Imm != imm {
			t.Fatalf("EncodeUJ/Decode round trip broke for imm=%d: got %d", imm, got.Imm)
		}
	}
}

// Decoding a U-type word sign-extends its 20-bit field: an all-ones
// field decodes to -4096 (0xFFFFF000).
func TestUImmediateSignExtends(t *testing.T) {
	w := EncodeU(OpcodeLUI, 1, -1) // all 20 bits set
	got := Decode(w)
	if got.Imm != -4096 {
		t.Fatalf("Decode(EncodeU(..., -1)).Imm = %d, want -4096", got.Imm)
	}
}
