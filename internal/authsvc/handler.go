// Package authsvc wires the auth process's one recognised packet,
// MsgAccount, to credential verification, login token minting, and the
// RPC push to the game process (spec.md §4.6, §8 scenario 2).
package authsvc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/dispatch"
	"github.com/tqserver/core/internal/protocol"
	"github.com/tqserver/core/internal/state"
	"github.com/tqserver/core/internal/store"
)

// ActorState is the auth process's per-connection state. There is none:
// a connection handles exactly one MsgAccount and closes, so Handler
// carries every dependency instead.
type ActorState struct{}

// Pusher is the capability handleAccount needs to reach the game
// process's RPC listener. *RPCClient is the one production
// implementation; tests supply a fake.
type Pusher interface {
	PushTransfer(ctx context.Context, t protocol.Transfer) error
}

// Handler holds the dependencies MsgAccount needs (spec.md §4.6:
// handlers are pure functions of (state, actor, packet), effects only
// through the actor or shared state — Handler itself is the "shared
// state" for the auth process).
type Handler struct {
	Store    store.Store
	Tokens   *state.TokenStore
	RPC      Pusher
	GameHost string
	GamePort uint16
}

// NewDispatcher builds the auth process's dispatcher: MsgAccount is
// recognised, any other id is fatal (spec.md §4.6 "auth: causes
// shutdown" on an unrecognised id).
func (h *Handler) NewDispatcher() *dispatch.Dispatcher[ActorState] {
	d := dispatch.NewDispatcher[ActorState]()
	d.StrictUnknown = true
	d.Register(protocol.MsgAccount, h.handleAccount)
	return d
}

// handleAccount verifies credentials, mints a login token, pushes it to
// the game process over RPC, and replies with host/port/token (spec.md
// §8 scenario 2). The connection is then closed by the caller — auth
// never keeps a connection open past one exchange.
func (h *Handler) handleAccount(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	req, err := protocol.DecodeAccountLogin(payload)
	if err != nil {
		return fmt.Errorf("%w: decoding MsgAccount: %v", dispatch.ErrFatal, err)
	}

	username := strings.TrimSpace(string(req.Username))

	var plain [protocol.TQPasswordSize]byte
	cipher.NewRC5Cipher().Decrypt(plain[:], req.Password[:])
	password := strings.TrimRight(string(plain[:]), "\x00")

	acc, err := h.Store.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("authsvc: unknown account", "username", username)
			return h.reject(ctx, a)
		}
		return fmt.Errorf("authsvc: looking up account %q: %w", username, err)
	}

	attempt := store.HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(attempt), []byte(acc.PasswordHash)) != 1 {
		slog.Warn("authsvc: wrong password", "username", username)
		return h.reject(ctx, a)
	}

	claim := state.TokenClaim{AccountID: acc.ID, RealmID: acc.RealmID}
	token := h.Tokens.IssueLoginToken(claim)

	if err := h.RPC.PushTransfer(ctx, protocol.Transfer{Token: token, AccountID: acc.ID, RealmID: acc.RealmID}); err != nil {
		slog.Error("authsvc: rpc push failed", "username", username, "err", err)
		return fmt.Errorf("%w: rpc push: %v", dispatch.ErrFatal, err)
	}

	// Rekey mid-stream, between the MsgAccount request and the ConnectEx
	// response it produces (spec.md §4.1 "called exactly once per
	// session, mid-stream, between a specific request/response pair").
	// The seed is the issued login token. The rekey is queued ahead of the
	// reply, so the ConnectEx reply itself is encrypted under the new key.
	if err := a.GenerateKeys(ctx, cipher.Seed{U64: uint64(token)}); err != nil {
		return err
	}

	reply := protocol.ConnectEx{Host: protocol.String16(h.GameHost), Port: h.GamePort, Token: token}
	if err := a.Send(ctx, uint16(protocol.MsgConnect), reply.Encode()); err != nil {
		return err
	}

	slog.Info("authsvc: login ok", "username", username, "account_id", acc.ID)
	return fmt.Errorf("%w: login complete", dispatch.ErrFatal)
}

// reject replies with a MsgTalk rejection and ends the connection — a
// bad login is treated the same as any other auth-terminal condition
// (spec.md §4.6).
func (h *Handler) reject(ctx context.Context, a *actor.Actor[ActorState]) error {
	talk := protocol.Talk{Channel: protocol.TalkChannelSystem, Message: "LOGIN FAILED"}
	if err := a.Send(ctx, uint16(protocol.MsgTalk), talk.Encode()); err != nil {
		return err
	}
	return fmt.Errorf("%w: rejected login", dispatch.ErrFatal)
}
