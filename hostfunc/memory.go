package hostfunc

import (
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// guestMemory is a bounds-checked view of the guest's linear memory, valid
// for the duration of a single host call. All offset arithmetic against
// guest memory happens here; every other part of the package operates on
// validated slices only.
type guestMemory struct {
	data []byte
}

// memoryOf captures the calling module's exported memory. It panics with
// [ErrMemoryNotFound] when the guest exports none, trapping the invocation.
func memoryOf(mod api.Module) guestMemory {
	mem := mod.Memory()
	if mem == nil {
		panic(ErrMemoryNotFound)
	}
	view, ok := mem.Read(0, mem.Size())
	if !ok {
		panic(ErrMemoryAccess)
	}
	return guestMemory{data: view}
}

// slice returns the mutable region [offset, offset+length). The whole range
// must lie within the current memory size; there are no partial views.
func (m guestMemory) slice(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("%w: offset=%d len=%d size=%d", ErrMemoryAccess, offset, length, len(m.data))
	}
	return m.data[offset:end], nil
}

// setRetLen reports a length to the guest as a 4-byte little-endian value.
// Guests use it to size a retry buffer when their first one was too small.
func (m guestMemory) setRetLen(ptr uint32, n uint32) error {
	dst, err := m.slice(ptr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, n)
	return nil
}
