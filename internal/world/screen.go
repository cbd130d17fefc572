package world

import (
	"context"
	"sync"
)

// Screen is a character's observer set: the other characters currently
// within ScreenDistance of it on the same map (spec.md §3 "Screen",
// §4.8). Invariant maintained by every mutating method below: visibility
// is symmetric — b is in a's screen iff a is in b's screen.
type Screen struct {
	mu        sync.RWMutex
	observers map[uint32]*Character
}

func newScreen() *Screen {
	return &Screen{observers: make(map[uint32]*Character)}
}

// Observers returns a snapshot of the characters currently watching this
// screen's owner.
func (s *Screen) Observers() []*Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Character, 0, len(s.observers))
	for _, c := range s.observers {
		out = append(out, c)
	}
	return out
}

// Contains reports whether id is currently an observer.
func (s *Screen) Contains(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.observers[id]
	return ok
}

func (s *Screen) add(c *Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[c.ID()] = c
}

func (s *Screen) remove(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

// SpawnFunc builds the (id, payload) packet viewer receives announcing
// that target has appeared on its screen. RemoveFunc is the symmetric
// packet announcing target's departure. Both are supplied by the caller
// (internal/gamesvc) so that world stays free of any protocol-encoding
// dependency (spec.md §4.8).
type SpawnFunc func(viewer, target *Character) (id uint16, payload []byte)
type RemoveFunc func(viewer, target *Character) (id uint16, payload []byte)

// LoadSurroundings populates self's screen from every character in the
// map's surrounding regions that is within ScreenDistance, adding the
// relationship mutually and sending a spawn packet to both sides
// (spec.md §4.8 "load_surroundings").
func LoadSurroundings(ctx context.Context, m *Map, self *Character, spawn SpawnFunc) error {
	pos := self.Position()
	for _, region := range m.SurroundingRegions(pos.X, pos.Y) {
		for _, other := range region.Characters() {
			if other.ID() == self.ID() {
				continue
			}
			if chebyshev(pos, other.Position()) > ScreenDistance {
				continue
			}
			addMutual(self, other)
			if err := sendSpawn(ctx, spawn, self, other); err != nil {
				return err
			}
		}
	}
	return nil
}

func sendSpawn(ctx context.Context, spawn SpawnFunc, self, other *Character) error {
	id, payload := spawn(self, other)
	if err := self.Send(ctx, id, payload); err != nil {
		return err
	}
	id2, payload2 := spawn(other, self)
	return other.Send(ctx, id2, payload2)
}

func addMutual(a, b *Character) {
	a.screen.add(b)
	b.screen.add(a)
}

func removeMutual(a, b *Character) {
	a.screen.remove(b.ID())
	b.screen.remove(a.ID())
}

// SendMovement broadcasts a pre-built movement packet to every current
// observer of self (spec.md §4.8 "send_movement").
func SendMovement(ctx context.Context, self *Character, id uint16, payload []byte) error {
	for _, observer := range self.Screen().Observers() {
		if err := observer.Send(ctx, id, payload); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromObservers tells every current observer that self has left,
// and clears the relationship on both sides (spec.md §4.8
// "remove_from_observers", invoked by Map.RemoveCharacter).
func RemoveFromObservers(ctx context.Context, self *Character, remove RemoveFunc) error {
	for _, observer := range self.Screen().Observers() {
		id, payload := remove(observer, self)
		if err := observer.Send(ctx, id, payload); err != nil {
			return err
		}
		removeMutual(self, observer)
	}
	return nil
}

// Refresh resamples self's surrounding regions after a step: characters
// newly within ScreenDistance are added as mutual observers (spawn sent
// both ways), characters that fell out of range are removed (remove sent
// both ways) (spec.md §4.8 "refresh").
func Refresh(ctx context.Context, m *Map, self *Character, spawn SpawnFunc, remove RemoveFunc) error {
	pos := self.Position()
	nearby := make(map[uint32]*Character)
	for _, region := range m.SurroundingRegions(pos.X, pos.Y) {
		for _, other := range region.Characters() {
			if other.ID() == self.ID() {
				continue
			}
			if chebyshev(pos, other.Position()) <= ScreenDistance {
				nearby[other.ID()] = other
			}
		}
	}

	for _, observer := range self.Screen().Observers() {
		if _, stillNearby := nearby[observer.ID()]; !stillNearby {
			id, payload := remove(observer, self)
			if err := observer.Send(ctx, id, payload); err != nil {
				return err
			}
			id2, payload2 := remove(self, observer)
			if err := self.Send(ctx, id2, payload2); err != nil {
				return err
			}
			removeMutual(self, observer)
		}
	}

	for id, other := range nearby {
		if self.Screen().Contains(id) {
			continue
		}
		addMutual(self, other)
		if err := sendSpawn(ctx, spawn, self, other); err != nil {
			return err
		}
	}

	return nil
}
