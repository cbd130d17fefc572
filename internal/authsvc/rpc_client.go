package authsvc

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/protocol"
)

// RPCClient holds the one persistent, unencrypted TCP connection from
// the auth process to the game process's RPC listener (spec.md §6 "RPC
// channel (auth → game)"). It redials lazily on first use and on any
// write failure, since the spec gives the RPC channel no delivery
// guarantee beyond "one persistent connection" — grounded on the same
// Encoder/NopCipher pair internal/netserver wires up for ordinary
// connections, reused here client-side since the teacher repo has no
// equivalent inter-process channel to ground this on directly.
type RPCClient struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
	enc  *protocol.Encoder
}

// NewRPCClient returns a client that will dial addr on first Push.
func NewRPCClient(addr string) *RPCClient {
	return &RPCClient{addr: addr}
}

// PushTransfer sends a MsgTransfer carrying (token, account_id, realm_id)
// to the game process, dialing or redialing as needed.
func (c *RPCClient) PushTransfer(ctx context.Context, t protocol.Transfer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enc == nil {
		if err := c.dialLocked(ctx); err != nil {
			return err
		}
	}

	if err := c.enc.Encode(uint16(protocol.MsgTransfer), t.Encode()); err != nil {
		c.closeLocked()
		if err2 := c.dialLocked(ctx); err2 != nil {
			return fmt.Errorf("authsvc: rpc push failed and redial failed: %w", err2)
		}
		if err := c.enc.Encode(uint16(protocol.MsgTransfer), t.Encode()); err != nil {
			return fmt.Errorf("authsvc: rpc push failed after redial: %w", err)
		}
	}
	return nil
}

func (c *RPCClient) dialLocked(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("authsvc: dialing game rpc %s: %w", c.addr, err)
	}
	c.conn = conn
	c.enc = protocol.NewEncoder(conn, cipher.NopCipher{})
	return nil
}

func (c *RPCClient) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.enc = nil
}

// Close releases the underlying connection, if any.
func (c *RPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.enc = nil
	return err
}
