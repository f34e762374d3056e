package hostfunc

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmgate/wasmgate/abi"
)

// Instantiate registers the five host functions on r under the
// [abi.Namespace] import namespace. The per-invocation [EndpointState] is
// taken from the context of each guest call, so one host module serves any
// number of concurrent invocations.
func Instantiate(ctx context.Context, r wazero.Runtime) (api.Closer, error) {
	i32 := api.ValueTypeI32

	b := r.NewHostModuleBuilder(abi.Namespace)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostReadRequest), []api.ValueType{i32, i32, i32}, nil).
		Export(abi.FuncReadRequest)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostReadRequestBody), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export(abi.FuncReadRequestBody)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostSendResponse), []api.ValueType{i32, i32, i32}, nil).
		Export(abi.FuncSendResponse)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostWriteResponseBody), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export(abi.FuncWriteResponseBody)
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostPoll), []api.ValueType{i32, i32, i32}, nil).
		Export(abi.FuncPoll)

	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s host module: %w", abi.Namespace, err)
	}
	return mod, nil
}

func hostReadRequest(ctx context.Context, mod api.Module, stack []uint64) {
	s := stateFrom(ctx)
	if err := s.readRequest(memoryOf(mod), uint32(stack[0]), uint32(stack[1]), uint32(stack[2])); err != nil {
		panic(err)
	}
}

func hostReadRequestBody(ctx context.Context, mod api.Module, stack []uint64) {
	s := stateFrom(ctx)
	status, err := s.readRequestBody(memoryOf(mod), uint32(stack[0]), uint32(stack[1]), uint32(stack[2]))
	if err != nil {
		panic(err)
	}
	stack[0] = uint64(status)
}

func hostSendResponse(ctx context.Context, mod api.Module, stack []uint64) {
	s := stateFrom(ctx)
	if err := s.sendResponse(memoryOf(mod), uint32(stack[0]), uint32(stack[1]), uint32(stack[2])); err != nil {
		panic(err)
	}
}

func hostWriteResponseBody(ctx context.Context, mod api.Module, stack []uint64) {
	s := stateFrom(ctx)
	status, err := s.writeResponseBody(memoryOf(mod), uint32(stack[0]), uint32(stack[1]), uint32(stack[2]))
	if err != nil {
		panic(err)
	}
	stack[0] = uint64(status)
}

func hostPoll(ctx context.Context, mod api.Module, stack []uint64) {
	s := stateFrom(ctx)
	if err := s.poll(ctx, memoryOf(mod), uint32(stack[0]), uint32(stack[1]), uint32(stack[2])); err != nil {
		panic(err)
	}
}

// readRequest copies the request text into the guest buffer. When the
// buffer is too small nothing is copied and only the true length is
// reported, so the guest can allocate and ask again. The true length is
// reported either way.
func (s *EndpointState) readRequest(mem guestMemory, buf, bufLen, outLen uint32) error {
	n := uint32(len(s.requestText))
	if bufLen < n {
		s.logger.Debug("read_request: buffer too small", zap.Uint32("buf_len", bufLen), zap.Uint32("need", n))
		return mem.setRetLen(outLen, n)
	}

	dst, err := mem.slice(buf, n)
	if err != nil {
		return err
	}
	copy(dst, s.requestText)
	return mem.setRetLen(outLen, n)
}

// readRequestBody moves already-buffered inbound body bytes into the guest.
// It never drives the source itself: an empty buffer means would-block and
// the guest must poll for request-readable first.
func (s *EndpointState) readRequestBody(mem guestMemory, buf, bufLen, outLen uint32) (int32, error) {
	if s.inboundEOF {
		if err := mem.setRetLen(outLen, 0); err != nil {
			return 0, err
		}
		return abi.StatusOK, nil
	}

	if s.inbound.Len() == 0 {
		return abi.StatusWouldBlock, nil
	}

	sz := bufLen
	if avail := uint32(s.inbound.Len()); avail < sz {
		sz = avail
	}
	dst, err := mem.slice(buf, sz)
	if err != nil {
		return 0, err
	}
	copy(dst, s.inbound.Next(int(sz)))
	if err := mem.setRetLen(outLen, sz); err != nil {
		return 0, err
	}
	s.logger.Debug("read_request_body", zap.Uint32("n", sz))
	return abi.StatusOK, nil
}

// sendResponse decodes the announced status and header block and delivers
// them to the framework. Delivery is one-shot and best-effort: a repeated
// announcement or a receiver that already went away is ignored.
func (s *EndpointState) sendResponse(mem guestMemory, status, headersBuf, headersBufLen uint32) error {
	if status < 100 || status > 999 {
		return fmt.Errorf("%w: %d", ErrInvalidStatusCode, status)
	}

	block, err := mem.slice(headersBuf, headersBufLen)
	if err != nil {
		return err
	}
	headers, err := abi.DecodeHeaders(block)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeaderBlock, err)
	}

	if s.announced {
		return nil
	}
	s.announced = true

	s.logger.Debug("send_response", zap.Uint32("status", status), zap.Int("headers", len(headers)))
	if s.notifier != nil {
		select {
		case s.notifier <- ResponseAnnouncement{Status: int(status), Headers: headers}:
		default:
		}
	}
	return nil
}

// writeResponseBody appends guest bytes to the outbound buffer, up to its
// remaining capacity. A full buffer reports would-block; the guest polls
// for response-writable so the sink can drain it.
func (s *EndpointState) writeResponseBody(mem guestMemory, data, dataLen, outLen uint32) (int32, error) {
	src, err := mem.slice(data, dataLen)
	if err != nil {
		return 0, err
	}

	sz := dataLen
	if free := uint32(OutboundBufferCap - s.outbound.Len()); free < sz {
		sz = free
	}
	if sz == 0 {
		return abi.StatusWouldBlock, nil
	}

	s.outbound.Write(src[:sz])
	if err := mem.setRetLen(outLen, sz); err != nil {
		return 0, err
	}
	s.logger.Debug("write_response_body", zap.Uint32("n", sz), zap.Int("buffered", s.outbound.Len()))
	return abi.StatusOK, nil
}
