package hostfunc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wasmgate/wasmgate/abi"
)

const testRequest = "GET / HTTP/1.1\r\n\r\n"

func testMem() guestMemory {
	return guestMemory{data: make([]byte, 1<<16)}
}

// retLen reads back a u32 length report from guest memory.
func retLen(t *testing.T, mem guestMemory, ptr uint32) uint32 {
	t.Helper()
	b, err := mem.slice(ptr, 4)
	if err != nil {
		t.Fatalf("reading length report: %v", err)
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestReadRequestShortBuffer(t *testing.T) {
	s := NewEndpointState(Config{RequestText: testRequest})
	defer s.Close()
	mem := testMem()

	// Ask with a too-small buffer: only the true length comes back.
	if err := s.readRequest(mem, 100, 10, 0); err != nil {
		t.Fatalf("readRequest failed: %v", err)
	}
	if got, want := retLen(t, mem, 0), uint32(len(testRequest)); got != want {
		t.Errorf("reported length: expected %d, got %d", want, got)
	}
	if !bytes.Equal(mem.data[100:110], make([]byte, 10)) {
		t.Error("short buffer must not be written")
	}

	// Allocate and ask again.
	if err := s.readRequest(mem, 100, uint32(len(testRequest)), 0); err != nil {
		t.Fatalf("readRequest retry failed: %v", err)
	}
	if got := string(mem.data[100 : 100+len(testRequest)]); got != testRequest {
		t.Errorf("expected %q, got %q", testRequest, got)
	}
	if got, want := retLen(t, mem, 0), uint32(len(testRequest)); got != want {
		t.Errorf("reported length on retry: expected %d, got %d", want, got)
	}
}

func TestReadRequestOutOfRange(t *testing.T) {
	s := NewEndpointState(Config{RequestText: testRequest})
	defer s.Close()
	mem := guestMemory{data: make([]byte, 8)}

	err := s.readRequest(mem, 0, uint32(len(testRequest)), 4)
	if !errors.Is(err, ErrMemoryAccess) {
		t.Errorf("expected ErrMemoryAccess, got %v", err)
	}
}

func TestReadRequestBodyWouldBlock(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := testMem()

	status, err := s.readRequestBody(mem, 100, 10, 0)
	if err != nil {
		t.Fatalf("readRequestBody failed: %v", err)
	}
	if status != abi.StatusWouldBlock {
		t.Errorf("expected would-block on empty buffer, got %d", status)
	}
}

func TestReadRequestBodyAfterEOF(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	s.inboundEOF = true
	mem := testMem()

	for i := 0; i < 3; i++ {
		status, err := s.readRequestBody(mem, 100, 10, 0)
		if err != nil {
			t.Fatalf("readRequestBody failed: %v", err)
		}
		if status != abi.StatusOK {
			t.Errorf("call %d: expected OK after EOF, got %d", i, status)
		}
		if got := retLen(t, mem, 0); got != 0 {
			t.Errorf("call %d: expected 0 bytes reported, got %d", i, got)
		}
	}
}

func TestReadRequestBodyFIFO(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	s.inbound.WriteString("hello world")
	mem := testMem()

	status, err := s.readRequestBody(mem, 100, 5, 0)
	if err != nil || status != abi.StatusOK {
		t.Fatalf("first read: status=%d err=%v", status, err)
	}
	if got := string(mem.data[100:105]); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	status, err = s.readRequestBody(mem, 200, 100, 0)
	if err != nil || status != abi.StatusOK {
		t.Fatalf("second read: status=%d err=%v", status, err)
	}
	n := retLen(t, mem, 0)
	if got := string(mem.data[200 : 200+n]); got != " world" {
		t.Errorf("expected %q, got %q", " world", got)
	}

	status, err = s.readRequestBody(mem, 100, 10, 0)
	if err != nil {
		t.Fatalf("drained read failed: %v", err)
	}
	if status != abi.StatusWouldBlock {
		t.Errorf("expected would-block once drained, got %d", status)
	}
}

func TestWriteResponseBodyPartialAccept(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	s.outbound.Write(make([]byte, OutboundBufferCap-6))
	mem := testMem()
	copy(mem.data[100:], "twenty bytes of body")

	status, err := s.writeResponseBody(mem, 100, 20, 0)
	if err != nil {
		t.Fatalf("writeResponseBody failed: %v", err)
	}
	if status != abi.StatusOK {
		t.Errorf("expected OK for a partial accept, got %d", status)
	}
	if got := retLen(t, mem, 0); got != 6 {
		t.Errorf("expected 6 bytes accepted, got %d", got)
	}
	if s.outbound.Len() != OutboundBufferCap {
		t.Errorf("expected buffer at capacity, got %d", s.outbound.Len())
	}
}

func TestWriteResponseBodyFull(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	s.outbound.Write(make([]byte, OutboundBufferCap))
	mem := testMem()

	status, err := s.writeResponseBody(mem, 100, 20, 0)
	if err != nil {
		t.Fatalf("writeResponseBody failed: %v", err)
	}
	if status != abi.StatusWouldBlock {
		t.Errorf("expected would-block on a full buffer, got %d", status)
	}
	if s.outbound.Len() != OutboundBufferCap {
		t.Errorf("buffer length changed: %d", s.outbound.Len())
	}
}

func TestWriteResponseBodyNeverExceedsCap(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := testMem()

	for i := 0; i < 10; i++ {
		status, err := s.writeResponseBody(mem, 0, 1000, 2000)
		if err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		if s.outbound.Len() > OutboundBufferCap {
			t.Fatalf("buffer exceeded cap: %d", s.outbound.Len())
		}
		if status == abi.StatusWouldBlock {
			break
		}
	}
	if s.outbound.Len() != OutboundBufferCap {
		t.Errorf("expected buffer filled to cap, got %d", s.outbound.Len())
	}
}

func TestWriteResponseBodyOutOfRange(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := guestMemory{data: make([]byte, 16)}

	if _, err := s.writeResponseBody(mem, 8, 100, 0); !errors.Is(err, ErrMemoryAccess) {
		t.Errorf("expected ErrMemoryAccess, got %v", err)
	}
}

func TestSendResponse(t *testing.T) {
	notifier := make(chan ResponseAnnouncement, 1)
	s := NewEndpointState(Config{Notifier: notifier})
	defer s.Close()
	mem := testMem()
	block := "Content-Type\ntext/plain\n"
	copy(mem.data[100:], block)

	if err := s.sendResponse(mem, 200, 100, uint32(len(block))); err != nil {
		t.Fatalf("sendResponse failed: %v", err)
	}

	select {
	case ann := <-notifier:
		if ann.Status != 200 {
			t.Errorf("expected status 200, got %d", ann.Status)
		}
		if got := ann.Headers.Get("Content-Type"); got != "text/plain" {
			t.Errorf("expected text/plain, got %q", got)
		}
	default:
		t.Fatal("no announcement delivered")
	}

	// A second announcement is ignored, not delivered.
	if err := s.sendResponse(mem, 500, 100, 0); err != nil {
		t.Fatalf("repeat sendResponse failed: %v", err)
	}
	select {
	case ann := <-notifier:
		t.Errorf("unexpected second announcement: %+v", ann)
	default:
	}
}

func TestSendResponseInvalidStatus(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := testMem()

	for _, status := range []uint32{0, 99, 1000, 70000} {
		if err := s.sendResponse(mem, status, 0, 0); !errors.Is(err, ErrInvalidStatusCode) {
			t.Errorf("status %d: expected ErrInvalidStatusCode, got %v", status, err)
		}
	}
	if s.announced {
		t.Error("invalid status must not announce")
	}
}

func TestSendResponseInvalidHeaderBlock(t *testing.T) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := testMem()
	copy(mem.data[100:], []byte{0xff, 0xfe, '\n', 'v', '\n'})

	if err := s.sendResponse(mem, 200, 100, 5); !errors.Is(err, ErrInvalidHeaderBlock) {
		t.Errorf("expected ErrInvalidHeaderBlock, got %v", err)
	}
}

func TestSendResponseReceiverGone(t *testing.T) {
	notifier := make(chan ResponseAnnouncement, 1)
	notifier <- ResponseAnnouncement{} // receiver abandoned with a stale entry
	s := NewEndpointState(Config{Notifier: notifier})
	defer s.Close()
	mem := testMem()

	// Delivery fails silently; the call still succeeds.
	if err := s.sendResponse(mem, 200, 0, 0); err != nil {
		t.Fatalf("sendResponse failed: %v", err)
	}
	if !s.announced {
		t.Error("response should be marked announced even when delivery fails")
	}
}

func BenchmarkReadRequestBody(b *testing.B) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := testMem()
	chunk := bytes.Repeat([]byte("x"), BodyChunkSize)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.inbound.Write(chunk)
		for s.inbound.Len() > 0 {
			if _, err := s.readRequestBody(mem, 0, 512, 60000); err != nil {
				b.Fatal(err)
			}
		}
		s.inboundEOF = false
	}
}

func BenchmarkWriteResponseBody(b *testing.B) {
	s := NewEndpointState(Config{})
	defer s.Close()
	mem := testMem()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.writeResponseBody(mem, 0, 1024, 60000); err != nil {
			b.Fatal(err)
		}
		if s.outbound.Len() >= OutboundBufferCap {
			s.outbound.Reset()
		}
	}
}
