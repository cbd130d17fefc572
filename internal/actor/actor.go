// Package actor implements the per-connection actor and its bounded
// outbound mailbox (spec.md §4.4). One Actor is created per connection
// by the server listener (internal/netserver); a dedicated writer
// goroutine drains the mailbox and owns the packet encoder and cipher.
package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/protocol"
)

// Depth is the bounded mailbox capacity (spec.md §3 "Message").
const Depth = 50

// ErrChannelClosed is returned by Send/GenerateKeys once the writer
// goroutine for this actor has exited. Shutdown returns nil in that case.
var ErrChannelClosed = errors.New("actor: mailbox is closed")

// Message is the tagged union delivered through an actor's mailbox:
// Packet, GenerateKeys, or Shutdown (spec.md §3).
type Message interface {
	isMessage()
}

// Packet carries one outbound (id, payload) to be encoded and written.
type Packet struct {
	ID      uint16
	Payload []byte
}

func (Packet) isMessage() {}

// GenerateKeys carries a mid-stream cipher rekey event.
type GenerateKeys struct {
	Seed cipher.Seed
}

func (GenerateKeys) isMessage() {}

// Shutdown tells the writer to close the write half and exit.
type Shutdown struct{}

func (Shutdown) isMessage() {}

// NewChannel returns a fresh mailbox of the spec-mandated depth.
func NewChannel() chan Message {
	return make(chan Message, Depth)
}

// Actor is the per-connection value handlers interact with: identity,
// outbound mailbox, and a polymorphic ActorState (unit for auth,
// character/screen holder for game — spec.md §3).
type Actor[S any] struct {
	id    atomic.Uint32
	tx    chan<- Message
	done  <-chan struct{}
	State S
}

// New builds an Actor bound to tx (the writer's receive side is the same
// channel) and done (closed by the writer when it exits).
func New[S any](tx chan Message, done <-chan struct{}, state S) *Actor[S] {
	return &Actor[S]{tx: tx, done: done, State: state}
}

// ID returns the actor's assigned numeric id (0 before login/register
// succeeds).
func (a *Actor[S]) ID() uint32 { return a.id.Load() }

// SetID assigns the actor's identity, done exactly once per session at
// login or registration.
func (a *Actor[S]) SetID(id uint32) { a.id.Store(id) }

// Equal compares two actors by id, per spec.md §3 ("Actors are
// hashed/compared by id").
func (a *Actor[S]) Equal(other *Actor[S]) bool {
	return a.ID() == other.ID()
}

// Send serializes and enqueues a packet, applying back-pressure when the
// mailbox is full.
func (a *Actor[S]) Send(ctx context.Context, id uint16, payload []byte) error {
	select {
	case <-a.done:
		return ErrChannelClosed
	default:
	}
	select {
	case a.tx <- Packet{ID: id, Payload: payload}:
		return nil
	case <-a.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GenerateKeys enqueues a rekey event. Must be issued only from within a
// handler — the FIFO mailbox is what guarantees the rekey lands between
// the correct pair of packets (spec.md §4.4).
func (a *Actor[S]) GenerateKeys(ctx context.Context, seed cipher.Seed) error {
	select {
	case <-a.done:
		return ErrChannelClosed
	default:
	}
	select {
	case a.tx <- GenerateKeys{Seed: seed}:
		return nil
	case <-a.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown enqueues a Shutdown message, causing the writer to close the
// write half and exit. A no-op if the writer has already exited.
func (a *Actor[S]) Shutdown(ctx context.Context) error {
	select {
	case a.tx <- Shutdown{}:
		return nil
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunWriter is the writer task's state machine (spec.md §4.4 table): it
// drains rx, encoding Packets, applying GenerateKeys to cipher, and
// exiting (closing the encoder's write half and the done channel) on
// Shutdown, channel closure, or a write error. It does not stop on a
// per-packet encode error unless the underlying I/O failed.
func RunWriter(rx <-chan Message, enc *protocol.Encoder, c cipher.Cipher, done chan<- struct{}, logAddr string) {
	defer close(done)
	defer func() {
		if err := enc.Close(); err != nil {
			slog.Warn("actor writer: close failed", "conn", logAddr, "err", err)
		}
	}()

	for msg := range rx {
		switch m := msg.(type) {
		case Packet:
			if err := enc.Encode(m.ID, m.Payload); err != nil {
				if errors.Is(err, protocol.ErrFrameTooLarge) {
					slog.Warn("actor writer: dropping oversized packet", "conn", logAddr, "packet_id", m.ID, "err", err)
					continue
				}
				slog.Warn("actor writer: write failed, closing", "conn", logAddr, "err", err)
				return
			}
		case GenerateKeys:
			c.GenerateKeys(m.Seed)
		case Shutdown:
			return
		}
	}
}
