// Package dispatch maps (id, bytes) to typed packet handlers (spec.md
// §4.6). A Dispatcher is built once per process (auth or game) and
// registers one Handler per recognised PacketID; unrecognised ids are
// either logged and ignored or treated as fatal, per StrictUnknown.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/protocol"
)

// ErrFatal wraps an error that must terminate the connection, distinct
// from ordinary handler errors which the caller only logs (spec.md §4.6:
// "auth: causes shutdown" on an unrecognised id).
var ErrFatal = errors.New("dispatch: fatal")

// ErrorPacket is a handler's request to send a structured error response
// to the client before continuing the connection — e.g. "name taken",
// "invalid registration" (spec.md §4.6).
type ErrorPacket struct {
	ID      uint16
	Payload []byte
}

func (e *ErrorPacket) Error() string {
	return fmt.Sprintf("dispatch: error packet id=%d", e.ID)
}

// Handler processes one decoded packet's payload for actor a. Handlers
// are pure functions of (state, actor, packet): effects happen only
// through a (Send/GenerateKeys/Shutdown/State mutation).
type Handler[S any] func(ctx context.Context, a *actor.Actor[S], payload []byte) error

// Dispatcher is a closed tagged set of recognised packet kinds for one
// process (spec.md §4.6).
type Dispatcher[S any] struct {
	handlers map[uint16]Handler[S]

	// StrictUnknown makes an unrecognised id fatal (auth process). When
	// false (game process) an unrecognised id is logged and ignored.
	StrictUnknown bool
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher[S any]() *Dispatcher[S] {
	return &Dispatcher[S]{handlers: make(map[uint16]Handler[S])}
}

// Register binds id to h. Registering the same id twice overwrites the
// prior handler.
func (d *Dispatcher[S]) Register(id protocol.PacketID, h Handler[S]) {
	d.handlers[uint16(id)] = h
}

// Dispatch looks up and invokes the handler for id. A handler returning
// *ErrorPacket has that packet sent to the client and is then treated as
// handled (no error surfaces). An unrecognised id is logged; it is
// additionally wrapped in ErrFatal when StrictUnknown is set, which
// tells the caller (internal/netserver) to end the connection.
func (d *Dispatcher[S]) Dispatch(ctx context.Context, id uint16, payload []byte, a *actor.Actor[S]) error {
	h, ok := d.handlers[id]
	if !ok {
		slog.Info("dispatch: unrecognised packet id", "packet_id", id, "len", len(payload))
		if d.StrictUnknown {
			return fmt.Errorf("%w: unrecognised packet id %d", ErrFatal, id)
		}
		return nil
	}

	err := h(ctx, a, payload)
	if err == nil {
		return nil
	}

	var ep *ErrorPacket
	if errors.As(err, &ep) {
		if sendErr := a.Send(ctx, ep.ID, ep.Payload); sendErr != nil {
			return sendErr
		}
		return nil
	}

	return err
}
