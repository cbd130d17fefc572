package state

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// TokenClaim is the payload a login or creation token resolves to: the
// account that proved its identity at auth time, and the realm it
// authenticated against (spec.md §3 "Tokens").
type TokenClaim struct {
	AccountID uint32
	RealmID   uint32
}

// TokenTTL bounds how long an unconsumed token survives (spec.md §9 open
// question 1: a bounded TTL is optional, not mandated; SPEC_FULL adopts
// it to bound map growth without a background sweeper goroutine).
const TokenTTL = 5 * time.Minute

type tokenEntry struct {
	claim     TokenClaim
	expiresAt time.Time
}

// TokenStore holds the game process's two one-shot token maps. Entries
// expire after TokenTTL; expiry is enforced lazily — checked against
// each entry on consume, and swept from the whole map on every insert —
// rather than by a background goroutine.
type TokenStore struct {
	loginMu sync.Mutex
	login   map[uint32]tokenEntry

	creationMu sync.Mutex
	creation   map[uint32]tokenEntry
}

// NewTokenStore returns empty login and creation token maps.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		login:    make(map[uint32]tokenEntry),
		creation: make(map[uint32]tokenEntry),
	}
}

// sweep removes every expired entry from m. Called with the map's lock
// already held, on each insert.
func sweep(m map[uint32]tokenEntry, now time.Time) {
	for token, entry := range m {
		if now.After(entry.expiresAt) {
			delete(m, token)
		}
	}
}

// NewToken returns a random nonzero u32, suitable as a map key for
// either token map.
func NewToken() uint32 {
	for {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(err) // crypto/rand failing is not recoverable
		}
		if t := binary.LittleEndian.Uint32(b[:]); t != 0 {
			return t
		}
	}
}

// IssueLoginToken mints and stores a fresh login token for claim,
// returned to the auth client and pushed to the game RPC channel
// (spec.md §6 "RPC channel").
func (t *TokenStore) IssueLoginToken(claim TokenClaim) uint32 {
	token := NewToken()
	now := time.Now()
	t.loginMu.Lock()
	sweep(t.login, now)
	t.login[token] = tokenEntry{claim: claim, expiresAt: now.Add(TokenTTL)}
	t.loginMu.Unlock()
	return token
}

// PutLoginToken inserts token directly, used by the game process's RPC
// handler receiving a MsgTransfer pushed from auth.
func (t *TokenStore) PutLoginToken(token uint32, claim TokenClaim) {
	now := time.Now()
	t.loginMu.Lock()
	defer t.loginMu.Unlock()
	sweep(t.login, now)
	t.login[token] = tokenEntry{claim: claim, expiresAt: now.Add(TokenTTL)}
}

// ConsumeLoginToken removes and returns token's claim; ok is false if
// token is unknown, expired, or was already consumed (spec.md §8 "Token
// consumption": remove(t) succeeds at most once per token).
func (t *TokenStore) ConsumeLoginToken(token uint32) (TokenClaim, bool) {
	t.loginMu.Lock()
	defer t.loginMu.Unlock()
	entry, ok := t.login[token]
	if !ok {
		return TokenClaim{}, false
	}
	delete(t.login, token)
	if time.Now().After(entry.expiresAt) {
		return TokenClaim{}, false
	}
	return entry.claim, true
}

// IssueCreationToken mints and stores a fresh registration token.
func (t *TokenStore) IssueCreationToken(claim TokenClaim) uint32 {
	token := NewToken()
	now := time.Now()
	t.creationMu.Lock()
	sweep(t.creation, now)
	t.creation[token] = tokenEntry{claim: claim, expiresAt: now.Add(TokenTTL)}
	t.creationMu.Unlock()
	return token
}

// ConsumeCreationToken removes and returns token's claim; ok is false if
// token is unknown, expired, or was already consumed.
func (t *TokenStore) ConsumeCreationToken(token uint32) (TokenClaim, bool) {
	t.creationMu.Lock()
	defer t.creationMu.Unlock()
	entry, ok := t.creation[token]
	if !ok {
		return TokenClaim{}, false
	}
	delete(t.creation, token)
	if time.Now().After(entry.expiresAt) {
		return TokenClaim{}, false
	}
	return entry.claim, true
}
