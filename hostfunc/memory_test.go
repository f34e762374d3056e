package hostfunc

import (
	"bytes"
	"errors"
	"testing"
)

func TestSliceValidRange(t *testing.T) {
	mem := guestMemory{data: make([]byte, 64)}
	copy(mem.data[10:], "hello")

	got, err := mem.slice(10, 5)
	if err != nil {
		t.Fatalf("slice failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	// The view is mutable and aliased with the underlying region.
	got[0] = 'H'
	if mem.data[10] != 'H' {
		t.Error("write through slice not visible in memory")
	}
}

func TestSliceBounds(t *testing.T) {
	mem := guestMemory{data: make([]byte, 64)}

	tests := []struct {
		name           string
		offset, length uint32
		ok             bool
	}{
		{"whole region", 0, 64, true},
		{"empty at end", 64, 0, true},
		{"one past end", 64, 1, false},
		{"length overrun", 60, 5, false},
		{"huge offset", 1 << 30, 1, false},
		{"offset+length overflow", 0xffffffff, 0xffffffff, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mem.slice(tt.offset, tt.length)
			if tt.ok {
				if err != nil {
					t.Fatalf("slice failed: %v", err)
				}
				if uint32(len(got)) != tt.length {
					t.Errorf("expected %d bytes, got %d", tt.length, len(got))
				}
				return
			}
			if !errors.Is(err, ErrMemoryAccess) {
				t.Errorf("expected ErrMemoryAccess, got %v", err)
			}
		})
	}
}

func TestSetRetLen(t *testing.T) {
	mem := guestMemory{data: make([]byte, 16)}
	if err := mem.setRetLen(4, 0x01020304); err != nil {
		t.Fatalf("setRetLen failed: %v", err)
	}
	if !bytes.Equal(mem.data[4:8], []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("expected little-endian encoding, got % x", mem.data[4:8])
	}

	if err := mem.setRetLen(14, 1); !errors.Is(err, ErrMemoryAccess) {
		t.Errorf("expected ErrMemoryAccess near end of memory, got %v", err)
	}
}
