package gamesvc

import (
	"context"
	"log/slog"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/store"
)

// OnDisconnected persists the actor's character, then removes it from
// its map (cascading to its region and screen observers) and the
// process-wide character registry (spec.md §4.5 "disconnect cleanup",
// §8 scenario 6: "the character row is persisted"). A no-op if the
// connection never completed login/registration.
func (h *Handler) OnDisconnected(ctx context.Context, a *actor.Actor[ActorState]) {
	ch := a.State.Character
	if ch == nil {
		return
	}

	if _, err := h.State.Store.CharacterSave(ctx, store.RowFromCharacter(ch)); err != nil {
		slog.Warn("gamesvc: disconnect save failed", "character_id", ch.ID(), "err", err)
	}

	m := h.State.Map(ch.MapID())
	if m != nil {
		if _, err := m.RemoveCharacter(ctx, ch.ID(), removePacket); err != nil {
			slog.Warn("gamesvc: disconnect cleanup failed", "character_id", ch.ID(), "err", err)
		}
	}
	h.State.UnregisterCharacter(ch.ID())
}
