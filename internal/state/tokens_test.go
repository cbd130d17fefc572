package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenConsumptionOnce(t *testing.T) {
	ts := NewTokenStore()
	claim := TokenClaim{AccountID: 7, RealmID: 1}
	token := ts.IssueLoginToken(claim)

	got, ok := ts.ConsumeLoginToken(token)
	require.True(t, ok)
	require.Equal(t, claim, got)

	_, ok = ts.ConsumeLoginToken(token)
	require.False(t, ok, "a token must not be consumable twice")
}

func TestConsumeUnknownTokenFails(t *testing.T) {
	ts := NewTokenStore()
	_, ok := ts.ConsumeLoginToken(12345)
	require.False(t, ok)
}

func TestLoginAndCreationTokensAreIndependent(t *testing.T) {
	ts := NewTokenStore()
	login := ts.IssueLoginToken(TokenClaim{AccountID: 1})
	creation := ts.IssueCreationToken(TokenClaim{AccountID: 2})

	_, ok := ts.ConsumeCreationToken(login)
	require.False(t, ok, "a login token must not satisfy creation-token consumption")

	claim, ok := ts.ConsumeLoginToken(login)
	require.True(t, ok)
	require.Equal(t, uint32(1), claim.AccountID)

	claim, ok = ts.ConsumeCreationToken(creation)
	require.True(t, ok)
	require.Equal(t, uint32(2), claim.AccountID)
}

func TestPutLoginTokenFromRPC(t *testing.T) {
	ts := NewTokenStore()
	ts.PutLoginToken(999, TokenClaim{AccountID: 3, RealmID: 2})

	claim, ok := ts.ConsumeLoginToken(999)
	require.True(t, ok)
	require.Equal(t, TokenClaim{AccountID: 3, RealmID: 2}, claim)
}

func TestExpiredTokenIsNotConsumable(t *testing.T) {
	ts := NewTokenStore()
	token := ts.IssueLoginToken(TokenClaim{AccountID: 1})

	ts.loginMu.Lock()
	entry := ts.login[token]
	entry.expiresAt = time.Now().Add(-time.Second)
	ts.login[token] = entry
	ts.loginMu.Unlock()

	_, ok := ts.ConsumeLoginToken(token)
	require.False(t, ok, "an expired token must not be consumable")
}

func TestIssueSweepsExpiredEntries(t *testing.T) {
	ts := NewTokenStore()
	stale := ts.IssueLoginToken(TokenClaim{AccountID: 1})

	ts.loginMu.Lock()
	entry := ts.login[stale]
	entry.expiresAt = time.Now().Add(-time.Second)
	ts.login[stale] = entry
	ts.loginMu.Unlock()

	ts.IssueLoginToken(TokenClaim{AccountID: 2})

	ts.loginMu.Lock()
	_, stillPresent := ts.login[stale]
	ts.loginMu.Unlock()
	require.False(t, stillPresent, "issuing a new token must sweep expired entries")
}
