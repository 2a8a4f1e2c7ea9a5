package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/civicgrid/commonwealth/go/internal/econ"
	"github.com/civicgrid/commonwealth/go/internal/gateway"
	"github.com/civicgrid/commonwealth/go/internal/protocol"
	"github.com/civicgrid/commonwealth/go/internal/registry"
)

// routerHandler bridges the gateway's handler contract onto the
// protocol router.
type routerHandler struct {
	router *protocol.Router
}

func (h routerHandler) HandleConnect(playerID string, t gateway.Transport) {
	h.router.HandleConnect(playerID, t)
}

func (h routerHandler) HandleMessage(playerID string, t gateway.Transport, raw []byte) {
	h.router.HandleMessage(playerID, t, raw)
}

func (h routerHandler) HandleDisconnect(playerID string) {
	h.router.HandleDisconnect(playerID)
}

// lobby exposes the registry's public room list to the gateway.
type lobby struct {
	reg *registry.Registry
}

func (l lobby) PublicRooms() any {
	return l.reg.PublicRooms()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	config, err := loadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(config.Server.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	clock := clockwork.NewRealClock()
	reg := registry.New(config.registryConfig(), clock, func() econ.Engine {
		return econ.NewBaseline()
	})

	router := protocol.NewRouter(reg)
	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), routerHandler{router}, clock)
	wsHandler := gateway.NewWebSocketHandler(manager, lobby{reg})

	server := setupServer(config, wsHandler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	reg.Shutdown()
}
