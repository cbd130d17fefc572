// Package state holds the game process's process-wide state (spec.md
// §4.9 "State & Token Store"): the persistent store handle, the map
// registry, the global character registry, and the two token maps.
// Initialised once at startup and passed explicitly to every handler —
// a deliberate departure from the teacher's world.Instance() sync.Once
// singleton, per spec.md §9's dependency-injection guidance; see
// DESIGN.md.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tqserver/core/internal/store"
	"github.com/tqserver/core/internal/world"
)

// State is constructed once per game process and threaded through every
// handler by the caller (internal/gamesvc), never reached through a
// package-level global.
type State struct {
	Store store.Store

	mapsMu sync.RWMutex
	maps   map[uint32]*world.Map

	charactersMu sync.RWMutex
	characters   map[uint32]*world.Character

	Tokens *TokenStore
}

// New builds an empty State bound to st. Call LoadMaps to populate the
// map registry from the store before accepting connections.
func New(st store.Store) *State {
	return &State{
		Store:      st,
		maps:       make(map[uint32]*world.Map),
		characters: make(map[uint32]*world.Character),
		Tokens:     NewTokenStore(),
	}
}

// LoadMaps fetches every map's metadata and portals from the store and
// builds one world.Map per row (spec.md §6 "map.load_all",
// "portal.load_for_map"). Floor data itself stays unloaded until a
// character first enters that map (spec.md §4.7).
func (s *State) LoadMaps(ctx context.Context, source world.FloorSource) error {
	rows, err := s.Store.MapLoadAll(ctx)
	if err != nil {
		return fmt.Errorf("state: loading maps: %w", err)
	}

	maps := make(map[uint32]*world.Map, len(rows))
	for _, row := range rows {
		portalRows, err := s.Store.PortalLoadForMap(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("state: loading portals for map %d: %w", row.ID, err)
		}
		portals := store.ToWorldPortals(portalRows)
		revive := world.Point{X: row.RevivePointX, Y: row.RevivePointY}
		maps[row.ID] = world.NewMap(row.ID, revive, portals, row.FloorPath, source)
	}

	s.mapsMu.Lock()
	defer s.mapsMu.Unlock()
	s.maps = maps
	return nil
}

// Map returns the registered Map for id, or nil if id is unknown.
func (s *State) Map(id uint32) *world.Map {
	s.mapsMu.RLock()
	defer s.mapsMu.RUnlock()
	return s.maps[id]
}

// Character returns the globally registered character for id.
func (s *State) Character(id uint32) (*world.Character, bool) {
	s.charactersMu.RLock()
	defer s.charactersMu.RUnlock()
	c, ok := s.characters[id]
	return c, ok
}

// RegisterCharacter adds ch to the global character registry, done once
// a session's login/registration completes (spec.md §4.9).
func (s *State) RegisterCharacter(ch *world.Character) {
	s.charactersMu.Lock()
	defer s.charactersMu.Unlock()
	s.characters[ch.ID()] = ch
}

// UnregisterCharacter removes id from the global registry, done by the
// disconnect hook (spec.md §4.5).
func (s *State) UnregisterCharacter(id uint32) {
	s.charactersMu.Lock()
	defer s.charactersMu.Unlock()
	delete(s.characters, id)
}

// SaveAllCharacters persists every currently registered character,
// called once from the graceful-shutdown path (SPEC_FULL.md "Graceful
// shutdown persistence sweep" expanding spec.md §4.9's state.clean_up).
// Continues past individual save failures so one bad row can't block
// the rest of the sweep; returns the count saved.
func (s *State) SaveAllCharacters(ctx context.Context) int {
	s.charactersMu.RLock()
	characters := make([]*world.Character, 0, len(s.characters))
	for _, ch := range s.characters {
		characters = append(characters, ch)
	}
	s.charactersMu.RUnlock()

	saved := 0
	for _, ch := range characters {
		if _, err := s.Store.CharacterSave(ctx, store.RowFromCharacter(ch)); err != nil {
			slog.Warn("state: shutdown save failed", "character_id", ch.ID(), "err", err)
			continue
		}
		saved++
	}
	return saved
}
