package rawmem

import "testing"

// TestReadWriteRoundTrip checks ReadWord/WriteWord operate on the exact word
// AddrOf names, and nothing adjacent.
func TestReadWriteRoundTrip(t *testing.T) {
	words := make([]uint64, 3)
	addr := AddrOf(&words[1])

	if got := ReadWord(addr); got != 0 {
		t.Errorf("ReadWord of fresh word = %d, want 0", got)
	}

	WriteWord(addr, 0xDEADBEEF)

	if words[1] != 0xDEADBEEF {
		t.Errorf("word = %#x, want 0xDEADBEEF", words[1])
	}
	if got := ReadWord(addr); got != 0xDEADBEEF {
		t.Errorf("ReadWord = %#x, want 0xDEADBEEF", got)
	}
	if words[0] != 0 || words[2] != 0 {
		t.Errorf("neighbors = %d, %d, want 0, 0 (untouched)", words[0], words[2])
	}
}

// TestAddrOfIsStable checks repeated AddrOf calls on the same word agree.
func TestAddrOfIsStable(t *testing.T) {
	w := new(uint64)
	if AddrOf(w) != AddrOf(w) {
		t.Error("AddrOf returned different addresses for the same word")
	}
}
