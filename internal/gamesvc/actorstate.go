// Package gamesvc wires the game process's recognised packets
// (MsgRegister, MsgConnect, MsgTalk, MsgAction, MsgItem, MsgWalk,
// MsgTransfer) to the world and state packages (spec.md §4.6, §8
// scenarios 2-6).
package gamesvc

import "github.com/tqserver/core/internal/world"

// ActorState is the game process's per-connection state: the
// Character the connection controls, once login or registration
// completes. Handlers read/write it directly — a single reader
// goroutine drives one actor's handlers in order, so no locking is
// needed here (spec.md §4.4).
type ActorState struct {
	Character *world.Character
}
