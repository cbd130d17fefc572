package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tqserver/core/internal/actor"
	"github.com/tqserver/core/internal/cipher"
	"github.com/tqserver/core/internal/config"
	"github.com/tqserver/core/internal/floorio"
	"github.com/tqserver/core/internal/gamesvc"
	"github.com/tqserver/core/internal/netserver"
	"github.com/tqserver/core/internal/state"
	"github.com/tqserver/core/internal/store"
)

// ConfigPath is the default location the game process reads its YAML
// config from, overridable with GAME_CONFIG (spec.md §6).
const ConfigPath = "config/gameserver.yaml"

// FloorRoot is where floor files named by store.MapRow.FloorPath are
// resolved from.
const FloorRoot = "data/floors"

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
	slog.Info("tqserver game process starting")

	cfgPath := ConfigPath
	if p := os.Getenv("GAME_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "rpc_bind", cfg.RPCBindAddress)

	if err := store.RunMigrations(ctx, cfg.Database.URL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pg, err := store.NewPostgres(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pg.Close()
	slog.Info("database connected")

	st := state.New(pg)
	if err := st.LoadMaps(ctx, floorio.New(FloorRoot)); err != nil {
		return fmt.Errorf("loading maps: %w", err)
	}
	slog.Info("maps loaded")

	h := &gamesvc.Handler{State: st}
	clientDispatcher := h.NewDispatcher()
	rpcDispatcher := h.NewRPCDispatcher()

	clientSrv := &netserver.Server[gamesvc.ActorState]{
		Addr:      cfg.BindAddress,
		NewCipher: func() cipher.Cipher { return cipher.NewTQCipher(cipher.RandomSeed()) },
		NewState:  func() gamesvc.ActorState { return gamesvc.ActorState{} },
		Handle: func(ctx context.Context, id uint16, payload []byte, a *actor.Actor[gamesvc.ActorState]) error {
			return clientDispatcher.Dispatch(ctx, id, payload, a)
		},
		OnDisconnected: h.OnDisconnected,
	}

	rpcSrv := &netserver.Server[struct{}]{
		Addr:      cfg.RPCBindAddress,
		NewCipher: func() cipher.Cipher { return cipher.NopCipher{} },
		NewState:  func() struct{} { return struct{}{} },
		Handle: func(ctx context.Context, id uint16, payload []byte, a *actor.Actor[struct{}]) error {
			return rpcDispatcher.Dispatch(ctx, id, payload, a)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return clientSrv.Run(gctx) })
	g.Go(func() error { return rpcSrv.Run(gctx) })
	runErr := g.Wait()

	// Both listeners have stopped accepting; persist every still-resident
	// character before exiting (SPEC_FULL.md "Graceful shutdown
	// persistence sweep").
	sweepCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	saved := st.SaveAllCharacters(sweepCtx)
	slog.Info("shutdown persistence sweep complete", "characters_saved", saved)

	return runErr
}
