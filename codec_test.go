package tinyfs

import "testing"

func TestEncodeDecodeInt32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, 255, 256, 65535, 1 << 20, 2147483647}
	for _, v := range cases {
		buf := make([]byte, 4)
		encodeInt32(v, buf)
		got := decodeInt32(buf)
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestBlockStampFree(t *testing.T) {
	var b block
	b.stampFree(42)
	if b.tag() != tagFree {
		t.Fatalf("tag = %d, want tagFree", b.tag())
	}
	if !b.isMagic() {
		t.Fatal("isMagic() = false after stampFree")
	}
	if got := b.freeNext(); got != 42 {
		t.Errorf("freeNext() = %d, want 42", got)
	}
}

func TestBlockStampFreeZeroesPayload(t *testing.T) {
	var b block
	for i := range b {
		b[i] = 0xff
	}
	b.stampFree(0)
	for i := offFreeNext + 4; i < BlockSize; i++ {
		if b[i] != 0 {
			t.Fatalf("byte %d = %#x, want 0 after stampFree", i, b[i])
		}
	}
}
