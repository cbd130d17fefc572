// Package netserver implements the generic accept loop shared by the
// auth and game listeners (spec.md §4.5): per connection it sets the
// mandated TCP options, spawns the actor + writer + decoder loop, and
// invokes lifecycle hooks around the connection's lifetime.
package netserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/dispatch"
	"github.com/tqserver/core/internal/protocol"
)

// HandleFunc dispatches one decoded packet to its handler. Implementations
// live in internal/dispatch.
type HandleFunc[S any] func(ctx context.Context, id uint16, payload []byte, a *actor.Actor[S]) error

// Server is a generic TCP listener parameterised by the actor state type
// S (struct{} for auth, game's ActorState for the game process).
type Server[S any] struct {
	// Addr is the bind address, e.g. "0.0.0.0:9958".
	Addr string

	// NewCipher returns a fresh Cipher for each accepted connection.
	NewCipher func() cipher.Cipher

	// NewState returns the initial ActorState for each accepted
	// connection.
	NewState func() S

	// Handle processes one decoded packet.
	Handle HandleFunc[S]

	// OnConnected is invoked before the decoder loop starts. Returning
	// an error aborts the connection without running the decoder loop
	// (spec.md §4.5).
	OnConnected func(ctx context.Context, addr string) error

	// OnDisconnected is invoked after the connection's packet loop ends,
	// once the writer has fully exited.
	OnDisconnected func(ctx context.Context, a *actor.Actor[S])
}

// Run accepts connections on Addr until ctx is cancelled. Accept errors
// are logged and the loop continues; per-connection errors are logged
// and terminate only that connection (spec.md §4.5 failure policy).
func (s *Server[S]) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("netserver: listening on %s: %w", s.Addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("netserver: listening", "addr", s.Addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("netserver: accept failed", "err", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server[S]) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetLinger(0)
		_ = ipv4.NewConn(tcpConn).SetTTL(5)
	}

	addr := conn.RemoteAddr().String()

	if s.OnConnected != nil {
		if err := s.OnConnected(ctx, addr); err != nil {
			slog.Warn("netserver: on_connected rejected connection", "conn", addr, "err", err)
			return
		}
	}

	c := s.NewCipher()
	state := s.NewState()

	mailbox := actor.NewChannel()
	done := make(chan struct{})
	enc := protocol.NewEncoder(conn, c)
	go actor.RunWriter(mailbox, enc, c, done, addr)

	a := actor.New(mailbox, done, state)
	dec := protocol.NewDecoder(conn, c)

	for {
		id, payload, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("netserver: decoder error", "conn", addr, "err", err)
			}
			break
		}
		if err := s.Handle(ctx, id, payload, a); err != nil {
			if errors.Is(err, actor.ErrChannelClosed) || errors.Is(err, dispatch.ErrFatal) {
				slog.Info("netserver: ending connection", "conn", addr, "packet_id", id, "err", err)
				break
			}
			slog.Warn("netserver: handler error", "conn", addr, "packet_id", id, "err", err)
		}
	}

	_ = a.Shutdown(ctx)
	<-done

	if s.OnDisconnected != nil {
		s.OnDisconnected(ctx, a)
	}
}
