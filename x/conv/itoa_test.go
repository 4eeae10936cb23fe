package conv

import "testing"

func TestAppendUint(t *testing.T) {
	for _, c := range []struct {
		n    uint64
		want string
	}{{0, "0"}, {7, "7"}, {255, "255"}, {18446744073709551615, "18446744073709551615"}} {
		if got := string(AppendUint(nil, c.n)); got != c.want {
			t.Fatalf("AppendUint(%d) = %q, want %q", c.n, got, c.want)
		}
	}
	if got := string(AppendUint([]byte("b:"), 42)); got != "b:42" {
		t.Fatalf("prefix lost: %q", got)
	}
}

func TestAppendBit(t *testing.T) {
	if got := string(AppendBit(AppendBit(nil, true), false)); got != "10" {
		t.Fatalf("AppendBit = %q", got)
	}
}
