package actor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/protocol"
)

func TestSendOrderingAndRekey(t *testing.T) {
	// send(A); send(B); generate_keys(k); send(C) must land on the wire
	// as A, B, rekey, C in that order (spec.md §5 ordering guarantees).
	var buf bytes.Buffer
	encCipher := cipher.NewTQCipher(1)
	enc := protocol.NewEncoder(&buf, encCipher)

	ch := NewChannel()
	done := make(chan struct{})
	go RunWriter(ch, enc, encCipher, done, "test")

	a := New(ch, done, struct{}{})
	ctx := context.Background()
	require.NoError(t, a.Send(ctx, 1, []byte("A")))
	require.NoError(t, a.Send(ctx, 2, []byte("B")))
	require.NoError(t, a.GenerateKeys(ctx, cipher.Seed{U64: 42}))
	require.NoError(t, a.Send(ctx, 3, []byte("C")))
	require.NoError(t, a.Shutdown(ctx))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not exit")
	}

	decCipher := cipher.NewTQCipher(1)
	dec := protocol.NewDecoder(bytes.NewReader(buf.Bytes()), decCipher)

	id, payload, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, uint16(1), id)
	require.Equal(t, "A", string(payload))

	id, payload, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, uint16(2), id)
	require.Equal(t, "B", string(payload))

	// The decoder must apply the same rekey at the same point to keep
	// decrypting correctly.
	decCipher.GenerateKeys(cipher.Seed{U64: 42})

	id, payload, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, uint16(3), id)
	require.Equal(t, "C", string(payload))
}

func TestSendAfterWriterExitReturnsChannelClosed(t *testing.T) {
	var buf bytes.Buffer
	c := cipher.NopCipher{}
	enc := protocol.NewEncoder(&buf, c)

	ch := NewChannel()
	done := make(chan struct{})
	go RunWriter(ch, enc, c, done, "test")

	a := New(ch, done, struct{}{})
	ctx := context.Background()
	require.NoError(t, a.Shutdown(ctx))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not exit")
	}

	err := a.Send(ctx, 1, []byte("too late"))
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestActorEqualityByID(t *testing.T) {
	a := New(NewChannel(), make(chan struct{}), struct{}{})
	b := New(NewChannel(), make(chan struct{}), struct{}{})
	require.True(t, a.Equal(b)) // both zero until assigned
	a.SetID(5)
	require.False(t, a.Equal(b))
	b.SetID(5)
	require.True(t, a.Equal(b))
}
