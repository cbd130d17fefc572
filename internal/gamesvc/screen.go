package gamesvc

import (
	"github.com/tqserver/core/internal/protocol"
	"github.com/tqserver/core/internal/world"
)

// spawnPacket builds the (id, payload) pair LoadSurroundings/Refresh
// send announcing target's appearance to viewer (spec.md §4.8). It
// never reads viewer; the signature is fixed by world.SpawnFunc.
func spawnPacket(viewer, target *world.Character) (uint16, []byte) {
	pos := target.Position()
	pkt := protocol.Spawn{
		CharacterID: target.ID(),
		Name:        protocol.String16(target.Name()),
		X:           pos.X,
		Y:           pos.Y,
		Direction:   target.Direction(),
		Class:       target.Class(),
		Mesh:        target.Mesh(),
	}
	return uint16(protocol.MsgSpawn), pkt.Encode()
}

// removePacket builds the (id, payload) pair announcing target's
// departure from viewer's screen (spec.md §4.8).
func removePacket(viewer, target *world.Character) (uint16, []byte) {
	pkt := protocol.Remove{CharacterID: target.ID()}
	return uint16(protocol.MsgRemove), pkt.Encode()
}
