// Package store defines the opaque persistence interfaces this core
// depends on (spec.md §6 "Persistent store interface"): account lookup,
// character CRUD, and map/portal metadata loading. The relational
// storage technology behind them is deliberately out of scope (spec.md
// §1) — internal/store/postgres.go supplies the one concrete
// implementation this repo ships, grounded on the teacher's
// internal/db repositories.
package store

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"errors"

	"github.com/tqserver/core/internal/world"
)

// HashPassword hashes a plaintext password the same way the teacher's
// internal/db.HashPassword does: SHA-1 then Base64. Swapping this for a
// slower KDF (bcrypt/argon2) is a reasonable hardening, but out of this
// CORE's scope — the stored hash is opaque to everything except this
// function and authsvc's login check.
func HashPassword(password string) string {
	h := sha1.New()
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// ErrNotFound is returned by lookups that found nothing, distinct from a
// genuine I/O failure (spec.md §7 "Database" error kind still logs and
// degrades gracefully on a hard failure, but a clean miss is not one).
var ErrNotFound = errors.New("store: not found")

// Account is the persisted row behind a login.
type Account struct {
	ID           uint32
	Username     string
	PasswordHash string
	RealmID      uint32
}

// CharacterRow is the persisted shape of a Character (spec.md §3).
type CharacterRow struct {
	ID         uint32
	Name       string
	AccountID  uint32
	RealmID    uint32
	MapID      uint32
	X, Y       uint16
	Class      uint16
	Mesh       uint32
	Attributes world.Attributes
}

// RowFromCharacter snapshots ch's current persisted fields into a
// CharacterRow, shared by every call site that needs to save a live
// character back to the store (registration, disconnect, shutdown
// sweep).
func RowFromCharacter(ch *world.Character) CharacterRow {
	pos := ch.Position()
	return CharacterRow{
		ID:         ch.ID(),
		Name:       ch.Name(),
		AccountID:  ch.AccountID(),
		RealmID:    ch.RealmID(),
		MapID:      ch.MapID(),
		X:          pos.X,
		Y:          pos.Y,
		Class:      ch.Class(),
		Mesh:       ch.Mesh(),
		Attributes: ch.Attributes(),
	}
}

// MapRow is the persisted metadata for one Map (spec.md §3: "immutable
// metadata — path to floor data, revive point").
type MapRow struct {
	ID            uint32
	FloorPath     string
	RevivePointX  uint16
	RevivePointY  uint16
}

// PortalRow is the persisted shape of a world.Portal.
type PortalRow struct {
	MapID        uint32
	FromX, FromY uint16
	ToMapID      uint32
	ToX, ToY     uint16
}

// Store is the full set of persistence operations the core requires
// (spec.md §6): account.by_username, character.name_taken,
// character.by_id, character.save, map.load_all, portal.load_for_map,
// plus CharacterByAccountID for the game process's connect path.
type Store interface {
	// AccountByUsername returns ErrNotFound if no account has that
	// username.
	AccountByUsername(ctx context.Context, username string) (Account, error)

	// CharacterNameTaken reports whether name is already in use by an
	// existing character (spec.md §8 scenario 3).
	CharacterNameTaken(ctx context.Context, name string) (bool, error)

	// CharacterByID returns ErrNotFound if no character has that id.
	CharacterByID(ctx context.Context, id uint32) (CharacterRow, error)

	// CharacterByAccountID returns ErrNotFound if accountID has not yet
	// created a character — the signal MsgConnect uses to decide whether
	// to admit the client or hand back a creation token instead (spec.md
	// §8 scenario 2/3).
	CharacterByAccountID(ctx context.Context, accountID uint32) (CharacterRow, error)

	// CharacterSave upserts a character row (insert on first save, e.g.
	// at registration, update thereafter) and returns its id — assigned
	// by the store on insert (row.ID == 0), echoed back unchanged on
	// update.
	CharacterSave(ctx context.Context, row CharacterRow) (uint32, error)

	// MapLoadAll returns the immutable metadata for every map in the
	// world, fetched once at process bootstrap.
	MapLoadAll(ctx context.Context) ([]MapRow, error)

	// PortalLoadForMap returns every portal whose FromX/FromY lies on
	// mapID.
	PortalLoadForMap(ctx context.Context, mapID uint32) ([]PortalRow, error)
}
