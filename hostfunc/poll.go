package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/wasmgate/wasmgate/abi"
)

// poll is the single suspension point of the ABI. It races up to three
// event sources and writes the first completed event to guest memory:
//
//   - the first request-readable subscription in the list drives one chunk
//     read of the body source,
//   - the first response-writable subscription drives one write attempt of
//     the buffered outbound bytes,
//   - every timeout subscription arms a timer, but only the earliest can
//     win a round, so a single timer stands in for all of them.
//
// Losing I/O sources keep their operation in flight inside the pumps; the
// effect lands when a later round observes the completion, never
// speculatively. Losing timers are simply stopped.
func (s *EndpointState) poll(ctx context.Context, mem guestMemory, subsPtr, numSubs, eventPtr uint32) error {
	if numSubs == 0 {
		return ErrNoSubscriptions
	}

	subsLen := uint64(numSubs) * abi.SubscriptionSize
	if subsLen > math.MaxUint32 {
		return fmt.Errorf("%w: %d subscriptions", ErrMemoryAccess, numSubs)
	}
	raw, err := mem.slice(subsPtr, uint32(subsLen))
	if err != nil {
		return err
	}
	// Validate the event pointer before waiting so a bad one traps now.
	evbuf, err := mem.slice(eventPtr, abi.EventSize)
	if err != nil {
		return err
	}
	subs, err := abi.ParseSubscriptions(raw, int(numSubs))
	if err != nil {
		return err
	}

	var readSub, writeSub, timerSub *abi.Subscription
	for i := range subs {
		sub := &subs[i]
		switch sub.Kind {
		case abi.KindRequestRead:
			if readSub == nil {
				readSub = sub
			}
		case abi.KindResponseWrite:
			if writeSub == nil {
				writeSub = sub
			}
		case abi.KindTimeout:
			// Only the earliest timer can resolve first. First listed
			// wins ties.
			if timerSub == nil || sub.Duration < timerSub.Duration {
				timerSub = sub
			}
		}
	}
	if readSub == nil && writeSub == nil && timerSub == nil {
		return fmt.Errorf("%w: %d subscriptions, none of a known kind", ErrNoSubscriptions, numSubs)
	}

	var readC <-chan readResult
	if readSub != nil {
		// Already at EOF, or enough is buffered that the guest should
		// consume before the source is driven again: readable right now.
		if s.inboundEOF || (s.inboundCap >= 0 && s.inbound.Len() >= s.inboundCap) {
			abi.PutEvent(evbuf, abi.Event{
				Kind:     abi.KindRequestRead,
				Status:   abi.StatusOK,
				Userdata: readSub.Userdata,
			})
			return nil
		}
		if s.reads == nil {
			s.reads = newReadPump(s.source)
		}
		if !s.reads.inflight {
			s.reads.requests <- struct{}{}
			s.reads.inflight = true
		}
		readC = s.reads.results
	}

	var writeC <-chan writeResult
	if writeSub != nil {
		if s.writes == nil {
			s.writes = newWritePump(s.sink)
		}
		if !s.writes.inflight {
			snapshot := append([]byte(nil), s.outbound.Bytes()...)
			s.writes.requests <- snapshot
			s.writes.inflight = true
		}
		writeC = s.writes.results
	}

	var timerC <-chan time.Time
	if timerSub != nil {
		timer := time.NewTimer(time.Duration(timerSub.Duration) * time.Millisecond)
		defer timer.Stop()
		timerC = timer.C
	}

	var ev abi.Event
	select {
	case res := <-readC:
		s.reads.inflight = false
		ev = s.applyRead(res, readSub.Userdata)
	case res := <-writeC:
		s.writes.inflight = false
		ev = s.applyWrite(res, writeSub.Userdata)
	case <-timerC:
		ev = abi.Event{Kind: abi.KindTimeout, Status: abi.StatusOK, Userdata: timerSub.Userdata}
	case <-ctx.Done():
		return ctx.Err()
	}

	abi.PutEvent(evbuf, ev)
	return nil
}

// applyRead lands a completed source read: bytes join the inbound buffer, a
// zero-byte read marks EOF, and a failure is summarized as StatusUnknown
// without leaking its cause across the trust boundary.
func (s *EndpointState) applyRead(res readResult, userdata uint64) abi.Event {
	switch {
	case len(res.data) > 0:
		s.inbound.Write(res.data)
		s.logger.Debug("poll: request readable", zap.Int("n", len(res.data)))
		return abi.Event{Kind: abi.KindRequestRead, Status: abi.StatusOK, Userdata: userdata}
	case res.err == nil || errors.Is(res.err, io.EOF):
		s.inboundEOF = true
		s.logger.Debug("poll: request body EOF")
		return abi.Event{Kind: abi.KindRequestRead, Status: abi.StatusOK, Userdata: userdata}
	default:
		s.logger.Debug("poll: request read failed", zap.Error(res.err))
		return abi.Event{Kind: abi.KindRequestRead, Status: abi.StatusUnknown, Userdata: userdata}
	}
}

// applyWrite lands a completed sink write. The written prefix leaves the
// outbound buffer even on a partial failed write, so a retry never sends
// the same bytes twice; the guest learns the freed capacity on its next
// write_response_body call.
func (s *EndpointState) applyWrite(res writeResult, userdata uint64) abi.Event {
	if res.n > 0 {
		s.outbound.Next(res.n)
	}
	if res.err != nil {
		s.logger.Debug("poll: response write failed", zap.Error(res.err))
		return abi.Event{Kind: abi.KindResponseWrite, Status: abi.StatusUnknown, Userdata: userdata}
	}
	s.logger.Debug("poll: response writable", zap.Int("n", res.n))
	return abi.Event{Kind: abi.KindResponseWrite, Status: abi.StatusOK, Userdata: userdata}
}
