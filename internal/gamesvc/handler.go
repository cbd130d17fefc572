package gamesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/dispatch"
	"github.com/tqserver/core/internal/protocol"
	"github.com/tqserver/core/internal/state"
	"github.com/tqserver/core/internal/store"
	"github.com/tqserver/core/internal/world"
)

// Handler holds the game process's process-wide dependencies (spec.md
// §4.9). One Handler is built at startup and its methods registered
// into both the client-facing dispatcher and the RPC dispatcher.
type Handler struct {
	State *state.State
}

// NewDispatcher builds the game process's client-facing dispatcher. An
// unrecognised id is logged and ignored, not fatal (spec.md §4.6 — only
// auth treats an unknown id as fatal).
func (h *Handler) NewDispatcher() *dispatch.Dispatcher[ActorState] {
	d := dispatch.NewDispatcher[ActorState]()
	d.Register(protocol.MsgConnect, h.handleConnect)
	d.Register(protocol.MsgRegister, h.handleRegister)
	d.Register(protocol.MsgTalk, h.handleTalk)
	d.Register(protocol.MsgAction, h.handleAction)
	d.Register(protocol.MsgItem, h.handleItem)
	d.Register(protocol.MsgWalk, h.handleWalk)
	return d
}

// NewRPCDispatcher builds the dispatcher bound to the game process's RPC
// listener: the only id it recognises is MsgTransfer, pushed by auth
// over the NopCipher channel (spec.md §6 "RPC channel").
func (h *Handler) NewRPCDispatcher() *dispatch.Dispatcher[struct{}] {
	d := dispatch.NewDispatcher[struct{}]()
	d.Register(protocol.MsgTransfer, h.handleTransfer)
	return d
}

func (h *Handler) handleTransfer(ctx context.Context, a *actor.Actor[struct{}], payload []byte) error {
	t, err := protocol.DecodeTransfer(payload)
	if err != nil {
		return fmt.Errorf("gamesvc: decoding MsgTransfer: %w", err)
	}
	h.State.Tokens.PutLoginToken(t.Token, state.TokenClaim{AccountID: t.AccountID, RealmID: t.RealmID})
	slog.Info("gamesvc: received transfer", "account_id", t.AccountID, "realm_id", t.RealmID)
	return nil
}

// handleConnect consumes a login token and either admits the client to
// its existing character, or — if the account has none yet — replies
// with a freshly minted creation token for a subsequent MsgRegister
// (spec.md §8 scenario 2/3).
func (h *Handler) handleConnect(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	req, err := protocol.DecodeConnect(payload)
	if err != nil {
		return fmt.Errorf("gamesvc: decoding MsgConnect: %w", err)
	}

	claim, ok := h.State.Tokens.ConsumeLoginToken(req.Token)
	if !ok {
		talk := protocol.Talk{Channel: protocol.TalkChannelSystem, Message: "INVALID TOKEN"}
		return &dispatch.ErrorPacket{ID: uint16(protocol.MsgTalk), Payload: talk.Encode()}
	}

	row, err := h.State.Store.CharacterByAccountID(ctx, claim.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		creationToken := h.State.Tokens.IssueCreationToken(claim)
		reply := protocol.Connect{Token: creationToken}
		return a.Send(ctx, uint16(protocol.MsgConnect), reply.Encode())
	}
	if err != nil {
		return fmt.Errorf("gamesvc: looking up character for account %d: %w", claim.AccountID, err)
	}

	return h.admit(ctx, a, row)
}

// handleRegister consumes a creation token and persists a new character
// with default stats, or rejects a taken name (spec.md §8 scenario 3).
func (h *Handler) handleRegister(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	reg, err := protocol.DecodeRegister(payload)
	if err != nil {
		return fmt.Errorf("gamesvc: decoding MsgRegister: %w", err)
	}

	claim, ok := h.State.Tokens.ConsumeCreationToken(reg.Token)
	if !ok {
		talk := protocol.Talk{Channel: protocol.TalkChannelRegister, Message: protocol.TalkRegisterInvalid}
		return &dispatch.ErrorPacket{ID: uint16(protocol.MsgTalk), Payload: talk.Encode()}
	}

	taken, err := h.State.Store.CharacterNameTaken(ctx, string(reg.CharacterName))
	if err != nil {
		return fmt.Errorf("gamesvc: checking character name %q: %w", reg.CharacterName, err)
	}
	if taken {
		talk := protocol.Talk{Channel: protocol.TalkChannelRegister, Message: protocol.TalkRegisterNameTaken}
		return &dispatch.ErrorPacket{ID: uint16(protocol.MsgTalk), Payload: talk.Encode()}
	}

	attrs := world.DefaultAttributes()
	row := store.CharacterRow{
		Name:       string(reg.CharacterName),
		AccountID:  claim.AccountID,
		RealmID:    claim.RealmID,
		MapID:      world.NewCharacterMapID,
		X:          world.NewCharacterX,
		Y:          world.NewCharacterY,
		Class:      reg.Class,
		Mesh:       uint32(reg.Mesh),
		Attributes: attrs,
	}
	id, err := h.State.Store.CharacterSave(ctx, row)
	if err != nil {
		return fmt.Errorf("gamesvc: saving new character %q: %w", reg.CharacterName, err)
	}
	row.ID = id

	if err := h.admit(ctx, a, row); err != nil {
		return err
	}

	talk := protocol.Talk{Channel: protocol.TalkChannelRegister, Message: protocol.TalkRegisterOK}
	return a.Send(ctx, uint16(protocol.MsgTalk), talk.Encode())
}

// admit hydrates row into a world.Character, attaches it to the actor,
// places it on its map, and loads its screen (spec.md §4.7 "Character
// insertion", §4.8 "load_surroundings"). Shared by handleConnect's
// existing-character path and handleRegister's new-character path.
func (h *Handler) admit(ctx context.Context, a *actor.Actor[ActorState], row store.CharacterRow) error {
	m := h.State.Map(row.MapID)
	if m == nil {
		return fmt.Errorf("gamesvc: character %d references unknown map %d", row.ID, row.MapID)
	}

	ch := world.NewCharacter(row.ID, row.AccountID, row.RealmID, row.Name, row.MapID, row.X, row.Y)
	ch.SetAttributes(row.Class, row.Mesh, row.Attributes)
	ch.SetSender(a)

	a.State.Character = ch
	a.SetID(ch.ID())
	h.State.RegisterCharacter(ch)

	if err := m.InsertCharacter(ctx, nil, ch, removePacket); err != nil {
		return fmt.Errorf("gamesvc: placing character %d on map %d: %w", ch.ID(), m.ID(), err)
	}
	if err := world.LoadSurroundings(ctx, m, ch, spawnPacket); err != nil {
		return fmt.Errorf("gamesvc: loading surroundings for character %d: %w", ch.ID(), err)
	}
	return nil
}

// handleTalk rebroadcasts a chat line to the sender's current screen
// observers (spec.md §4.8 "send_movement" — reused here for any
// screen-scoped broadcast, not just movement).
func (h *Handler) handleTalk(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	ch := a.State.Character
	if ch == nil {
		return nil
	}
	if _, err := protocol.DecodeTalk(payload); err != nil {
		return fmt.Errorf("gamesvc: decoding MsgTalk: %w", err)
	}
	return world.SendMovement(ctx, ch, uint16(protocol.MsgTalk), payload)
}

// handleAction implements the question-answer action envelope
// (msg_action.rs): every ActionType this CORE doesn't special-case — which
// is all of them, since msg_action.rs itself gives SetLocation and
// SetMapARGB the only special arms and leaves SetDirection (along with
// everything else) on its default path — gets the reference
// implementation's "Missing Action Type" system warning followed by the
// original request echoed back unchanged.
func (h *Handler) handleAction(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	act, err := protocol.DecodeAction(payload)
	if err != nil {
		return fmt.Errorf("gamesvc: decoding MsgAction: %w", err)
	}
	ch := a.State.Character
	if ch == nil {
		return nil
	}

	talk := protocol.Talk{Channel: protocol.TalkChannelTalk, Message: "Missing Action Type"}
	if err := a.Send(ctx, uint16(protocol.MsgTalk), talk.Encode()); err != nil {
		return err
	}
	return a.Send(ctx, uint16(protocol.MsgAction), payload)
}

// handleItem is a deliberate stub: per-item business logic is explicitly
// out of this CORE's scope (spec.md §1 "the per-packet business logic
// for individual message kinds beyond what illustrates the contracts").
// The id still needs a registered handler so it isn't logged as
// unrecognised on every inventory action a client performs.
func (h *Handler) handleItem(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	slog.Debug("gamesvc: MsgItem received, not implemented", "len", len(payload))
	return nil
}

// handleWalk runs the elevation-sampling anti-wall-jump check (spec.md
// §4.7 "Elevation sampling", §8 scenario 4): on acceptance, it updates
// position, region membership, and broadcasts the move; on rejection it
// echoes the original request back unchanged, leaving state untouched.
func (h *Handler) handleWalk(ctx context.Context, a *actor.Actor[ActorState], payload []byte) error {
	req, err := protocol.DecodeWalk(payload)
	if err != nil {
		return fmt.Errorf("gamesvc: decoding MsgWalk: %w", err)
	}
	ch := a.State.Character
	if ch == nil {
		return nil
	}

	m := h.State.Map(ch.MapID())
	if m == nil {
		return fmt.Errorf("gamesvc: character %d on unknown map %d", ch.ID(), ch.MapID())
	}

	start := ch.Position()
	end := world.Point{X: req.X, Y: req.Y}

	var elevation int16
	if tile, ok := m.Tile(start.X, start.Y); ok {
		elevation = tile.Elevation
	}

	if !m.SampleElevation(start, end, elevation) {
		return a.Send(ctx, uint16(protocol.MsgWalk), payload)
	}

	ch.SetPosition(end)
	ch.SetDirection(req.Direction)

	if portal, ok := m.PortalNear(end); ok {
		return h.traversePortal(ctx, m, ch, portal)
	}

	m.UpdateRegionFor(ch)

	broadcast := protocol.WalkBroadcast{CharacterID: ch.ID(), X: end.X, Y: end.Y, Direction: req.Direction}
	if err := world.SendMovement(ctx, ch, uint16(protocol.MsgWalkBroadcast), broadcast.Encode()); err != nil {
		return err
	}
	return world.Refresh(ctx, m, ch, spawnPacket, removePacket)
}

// traversePortal moves ch from its current map to the portal's
// destination map/tile (SPEC_FULL.md "Portal traversal"): bring its
// region membership up to the walked-to tile, remove it from the old map
// (cascading to its region/screen) while its position still names that
// tile, then move it to the destination tile, insert it into the new
// map, and load the new screen.
func (h *Handler) traversePortal(ctx context.Context, from *world.Map, ch *world.Character, portal world.Portal) error {
	to := h.State.Map(portal.ToMapID)
	if to == nil {
		return fmt.Errorf("gamesvc: portal on map %d references unknown map %d", from.ID(), portal.ToMapID)
	}

	from.UpdateRegionFor(ch)
	if _, err := from.RemoveCharacter(ctx, ch.ID(), removePacket); err != nil {
		return fmt.Errorf("gamesvc: portal transition for character %d from map %d: %w", ch.ID(), from.ID(), err)
	}
	ch.SetPosition(world.Point{X: portal.ToX, Y: portal.ToY})
	if err := to.InsertCharacter(ctx, nil, ch, removePacket); err != nil {
		return fmt.Errorf("gamesvc: portal transition for character %d to map %d: %w", ch.ID(), to.ID(), err)
	}
	return world.LoadSurroundings(ctx, to, ch, spawnPacket)
}
