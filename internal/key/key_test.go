package key

import (
	"math/big"
	"testing"
)

func mustSpace(t *testing.T, bits int) Space {
	t.Helper()
	sp, err := NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace(%d): %v", bits, err)
	}
	return sp
}

func TestIDFromHexRoundTrip(t *testing.T) {
	sp := mustSpace(t, 8)

	id, err := sp.IDFromHex("7f")
	if err != nil {
		t.Fatalf("IDFromHex: %v", err)
	}
	if id.Hex(false) != "7f" {
		t.Errorf("Hex() = %q, want 7f", id.Hex(false))
	}
	if id.Hex(true) != "0x7f" {
		t.Errorf("Hex(prefix) = %q, want 0x7f", id.Hex(true))
	}
}

func TestIDFromHexRejectsOverflow(t *testing.T) {
	sp := mustSpace(t, 4) // nibble space: values > 0xF are invalid

	if _, err := sp.IDFromHex("10"); err == nil {
		t.Fatal("expected error for value exceeding 4-bit space")
	}
	if _, err := sp.IDFromHex("0f"); err != nil {
		t.Fatalf("0x0f should fit in 4 bits: %v", err)
	}
}

func TestAddSubRoundTrip(t *testing.T) {
	sp := mustSpace(t, 8)
	a, _ := sp.IDFromHex("f0")
	b, _ := sp.IDFromHex("20")

	sum := sp.Add(a, b) // 0xf0 + 0x20 = 0x110 mod 0x100 = 0x10
	if sum.Hex(false) != "10" {
		t.Errorf("Add wraps incorrectly: got %s, want 10", sum.Hex(false))
	}

	back := sp.Sub(sum, b)
	if !back.Equal(a) {
		t.Errorf("Sub did not invert Add: got %s, want %s", back.Hex(false), a.Hex(false))
	}
}

func TestPow2(t *testing.T) {
	sp := mustSpace(t, 8)
	for i := 0; i < 8; i++ {
		got := sp.Pow2(i)
		want := byte(1) << uint(i)
		if got[0] != want {
			t.Errorf("Pow2(%d) = %#x, want %#x", i, got[0], want)
		}
	}
}

// TestIntervalPredicates checks the three interval predicates against
// an oracle that walks the arc clockwise one step at a time, across
// both orientations and the degenerate a==b case.
func TestIntervalPredicates(t *testing.T) {
	sp := mustSpace(t, 8)

	between := func(lo, hi, x int64, rightIncl, leftIncl bool) bool {
		lo = ((lo % 256) + 256) % 256
		hi = ((hi % 256) + 256) % 256
		x = ((x % 256) + 256) % 256
		if lo == hi {
			if rightIncl {
				return true // whole ring
			}
			if leftIncl {
				return x != lo // whole ring minus the point
			}
			return false // empty arc
		}
		// walk clockwise from lo to hi
		cur := (lo + 1) % 256
		for {
			if cur == hi {
				if rightIncl && x == int64(cur) {
					return true
				}
				break
			}
			if x == int64(cur) {
				return true
			}
			cur = (cur + 1) % 256
		}
		return false
	}

	cases := []struct{ a, b, x int64 }{
		{10, 20, 15}, {10, 20, 5}, {10, 20, 10}, {10, 20, 20},
		{200, 10, 250}, {200, 10, 5}, {200, 10, 200}, {200, 10, 10},
		{42, 42, 42}, {42, 42, 0}, {42, 42, 255},
	}

	for _, c := range cases {
		a, _ := sp.IDFromHex(idHex(c.a))
		b, _ := sp.IDFromHex(idHex(c.b))
		x, _ := sp.IDFromHex(idHex(c.x))

		if got, want := x.IsBetweenExclu(a, b), between(c.a, c.b, c.x, false, true); got != want {
			t.Errorf("IsBetweenExclu(%d,%d,%d) = %v, want %v", c.a, c.b, c.x, got, want)
		}
		if got, want := x.IsBetweenRIncl(a, b), between(c.a, c.b, c.x, true, true); got != want {
			t.Errorf("IsBetweenRIncl(%d,%d,%d) = %v, want %v", c.a, c.b, c.x, got, want)
		}
		if got, want := x.IsBetween(a, b), between(c.a, c.b, c.x, false, false); got != want {
			t.Errorf("IsBetween(%d,%d,%d) = %v, want %v", c.a, c.b, c.x, got, want)
		}
	}
}

func idHex(v int64) string {
	s := big.NewInt(v).Text(16)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}
