package world

import (
	"context"
	"sync"
)

// Sender is the narrow capability a Character needs back from its owning
// actor to reach the client: enqueue one outbound packet (spec.md §4.4
// Actor.send). Character depends on this interface rather than the
// actor package directly so that world has no dependency on actor or
// protocol — a cheap handle, per spec.md §9's guidance on cyclic
// ownership, not the actor itself.
type Sender interface {
	Send(ctx context.Context, id uint16, payload []byte) error
}

// Attributes holds a character's derived/persisted combat stats
// (spec.md §8 scenario 3 default-stat formulas).
type Attributes struct {
	Strength uint16
	Agility  uint16
	Vitality uint16
	Spirit   uint16
	HP       uint32
	Silver   uint64
}

// Character is the per-player entity tracked jointly by the owning
// actor, its map, and its region (spec.md §3 "Character"). The actor is
// the authoritative mutator; Map/MapRegion hold the same pointer purely
// to iterate — there is exactly one Character value per logged-in
// player, shared by reference within this process.
type Character struct {
	id        uint32
	name      string
	accountID uint32
	realmID   uint32

	mu         sync.RWMutex
	mapID      uint32
	x, y       uint16
	prevX      uint16
	prevY      uint16
	direction  uint8
	class      uint16
	mesh       uint32
	attributes Attributes
	sender     Sender

	screen *Screen
}

// NewCharacter constructs a Character at the given map/position with the
// given identity. Attributes are set separately via SetAttributes (e.g.
// after loading from or creating in the store).
func NewCharacter(id, accountID, realmID uint32, name string, mapID uint32, x, y uint16) *Character {
	return &Character{
		id:        id,
		name:      name,
		accountID: accountID,
		realmID:   realmID,
		mapID:     mapID,
		x:         x,
		y:         y,
		prevX:     x,
		prevY:     y,
		screen:    newScreen(),
	}
}

func (c *Character) ID() uint32        { return c.id }
func (c *Character) Name() string      { return c.name }
func (c *Character) AccountID() uint32 { return c.accountID }
func (c *Character) RealmID() uint32   { return c.realmID }

// SetSender attaches the actor-side handle used to reach this
// character's client. Called once, at login/registration completion.
func (c *Character) SetSender(s Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = s
}

// Send forwards to the attached Sender, or is a no-op if none is
// attached yet (e.g. a character snapshot still being constructed).
func (c *Character) Send(ctx context.Context, id uint16, payload []byte) error {
	c.mu.RLock()
	s := c.sender
	c.mu.RUnlock()
	if s == nil {
		return nil
	}
	return s.Send(ctx, id, payload)
}

func (c *Character) MapID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapID
}

func (c *Character) setMapID(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapID = id
}

// Position returns the character's current tile.
func (c *Character) Position() Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Point{X: c.x, Y: c.y}
}

// PrevPosition returns the tile the character occupied before its last
// move, used to compute the region transition on a step (spec.md §4.7).
func (c *Character) PrevPosition() Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Point{X: c.prevX, Y: c.prevY}
}

// SetPosition records a new tile, remembering the previous one.
func (c *Character) SetPosition(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prevX, c.prevY = c.x, c.y
	c.x, c.y = p.X, p.Y
}

func (c *Character) Direction() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.direction
}

func (c *Character) SetDirection(d uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direction = d
}

func (c *Character) Class() uint16 { c.mu.RLock(); defer c.mu.RUnlock(); return c.class }
func (c *Character) Mesh() uint32  { c.mu.RLock(); defer c.mu.RUnlock(); return c.mesh }

func (c *Character) Attributes() Attributes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attributes
}

// SetAttributes replaces the character's stat block wholesale (used at
// registration and on load from the store).
func (c *Character) SetAttributes(class uint16, mesh uint32, a Attributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.class = class
	c.mesh = mesh
	c.attributes = a
}

// Screen returns the character's observer set (spec.md §3 "Screen").
func (c *Character) Screen() *Screen { return c.screen }
