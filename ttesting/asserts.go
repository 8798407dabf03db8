package ttesting

import (
	"bytes"
	"testing"
)

func AssertEqualInt(t *testing.T, name string, got, want int) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualUint32(t *testing.T, name string, got, want uint32) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualBool(t *testing.T, name string, got, want bool) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %v; want %v", got, want)
		}
	})
}

func AssertEqualBytes(t *testing.T, name string, got, want []byte) {
	t.Run(name, func(t *testing.T) {
		if !bytes.Equal(got, want) {
			t.Errorf("got %v; want %v", got, want)
		}
	})
}

func AssertEqualInts(t *testing.T, name string, got, want []int) {
	t.Run(name, func(t *testing.T) {
		if len(got) != len(want) {
			t.Errorf("got %v; want %v", got, want)
			return
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("got %v; want %v", got, want)
				return
			}
		}
	})
}
