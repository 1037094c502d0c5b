//go:build unix

package netpoll

import "testing"

func TestReadableRejectsOutOfRangeFd(t *testing.T) {
	// An fd past FD_SETSIZE must surface as an error, never as a
	// corrupted bitmap or a panic.
	for _, fd := range []int{Capacity, Capacity + 100, -1} {
		if _, err := (Ops{}).Readable([]int{fd}); err == nil {
			t.Fatalf("Readable([%d]) accepted an fd outside select capacity", fd)
		}
	}
}

func TestReadableEmptySet(t *testing.T) {
	ready, err := (Ops{}).Readable(nil)
	if err != nil {
		t.Fatalf("Readable(nil): %v", err)
	}
	if len(ready) != 0 {
		t.Fatalf("empty poll returned %v", ready)
	}
}
