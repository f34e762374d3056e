package abi

import (
	"encoding/binary"
	"fmt"
)

// Namespace is the import namespace the host functions are registered under.
const Namespace = "wasmgate"

// Host function names within [Namespace].
const (
	FuncReadRequest       = "read_request"
	FuncReadRequestBody   = "read_request_body"
	FuncSendResponse      = "send_response"
	FuncWriteResponseBody = "write_response_body"
	FuncPoll              = "poll"
)

// Status codes returned by host functions and carried in events.
const (
	StatusOK         = 0
	StatusWouldBlock = 1
	StatusUnknown    = 2
)

// Subscription and event kinds.
const (
	KindRequestRead   = 1
	KindResponseWrite = 2
	KindTimeout       = 3
)

// Record sizes in guest memory.
const (
	SubscriptionSize = 24
	EventSize        = 16
)

// Subscription is one entry of the array a guest passes to poll: an event
// kind it wants to wait on, an opaque userdata value echoed back in the
// resulting event, and a kind-specific payload (milliseconds for
// [KindTimeout], unused otherwise).
type Subscription struct {
	Kind     uint32
	Userdata uint64
	Duration uint64
}

// Event is the host's answer to a poll call: which subscription kind
// resolved, its echoed userdata, and a status code.
type Event struct {
	Kind     uint32
	Status   uint32
	Userdata uint64
}

// AppendSubscription appends the 24-byte wire form of s to buf.
func AppendSubscription(buf []byte, s Subscription) []byte {
	var b [SubscriptionSize]byte
	binary.LittleEndian.PutUint32(b[0:], s.Kind)
	binary.LittleEndian.PutUint64(b[8:], s.Userdata)
	binary.LittleEndian.PutUint64(b[16:], s.Duration)
	return append(buf, b[:]...)
}

// ParseSubscriptions decodes count packed subscription records from data.
// data must hold exactly count records.
func ParseSubscriptions(data []byte, count int) ([]Subscription, error) {
	if len(data) != count*SubscriptionSize {
		return nil, fmt.Errorf("subscription array: got %d bytes, want %d", len(data), count*SubscriptionSize)
	}
	subs := make([]Subscription, count)
	for i := range subs {
		rec := data[i*SubscriptionSize:]
		subs[i] = Subscription{
			Kind:     binary.LittleEndian.Uint32(rec[0:]),
			Userdata: binary.LittleEndian.Uint64(rec[8:]),
			Duration: binary.LittleEndian.Uint64(rec[16:]),
		}
	}
	return subs, nil
}

// PutEvent writes the 16-byte wire form of e into buf, which must be at
// least [EventSize] bytes.
func PutEvent(buf []byte, e Event) {
	binary.LittleEndian.PutUint32(buf[0:], e.Kind)
	binary.LittleEndian.PutUint32(buf[4:], e.Status)
	binary.LittleEndian.PutUint64(buf[8:], e.Userdata)
}

// ParseEvent decodes an event record from buf.
func ParseEvent(buf []byte) Event {
	return Event{
		Kind:     binary.LittleEndian.Uint32(buf[0:]),
		Status:   binary.LittleEndian.Uint32(buf[4:]),
		Userdata: binary.LittleEndian.Uint64(buf[8:]),
	}
}
