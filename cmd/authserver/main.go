package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/authsvc"
	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/config"
	"github.com/tqserver/core/internal/netserver"
	"github.com/tqserver/core/internal/state"
	"github.com/tqserver/core/internal/store"
)

// ConfigPath is the default location the auth process reads its YAML
// config from, overridable with AUTH_CONFIG (spec.md §6).
const ConfigPath = "config/authserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.Info("tqserver auth process starting")

	cfgPath := ConfigPath
	if p := os.Getenv("AUTH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAuthServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "game_rpc", cfg.GameRPCAddress)

	if err := store.RunMigrations(ctx, cfg.Database.URL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pg, err := store.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pg.Close()
	slog.Info("database connected")

	gameHost, gamePort := hostAndPort(cfg.GamePublicAddress)

	rpc := authsvc.NewRPCClient(cfg.GameRPCAddress)
	defer rpc.Close()

	h := &authsvc.Handler{
		Store:    pg,
		Tokens:   state.NewTokenStore(),
		RPC:      rpc,
		GameHost: gameHost,
		GamePort: gamePort,
	}
	dispatcher := h.NewDispatcher()

	srv := &netserver.Server[authsvc.ActorState]{
		Addr:      cfg.BindAddress,
		NewCipher: func() cipher.Cipher { return cipher.NewTQCipher(cipher.RandomSeed()) },
		NewState:  func() authsvc.ActorState { return authsvc.ActorState{} },
		Handle: func(ctx context.Context, id uint16, payload []byte, a *actor.Actor[authsvc.ActorState]) error {
			return dispatcher.Dispatch(ctx, id, payload, a)
		},
	}

	return srv.Run(ctx)
}

func hostAndPort(addr string) (string, uint16) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, uint16(port)
}
