package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/nordcall/signalcore/internal/config"
	"github.com/nordcall/signalcore/internal/httpapi"
	"github.com/nordcall/signalcore/internal/logging"
	"github.com/nordcall/signalcore/internal/registry"
	"github.com/nordcall/signalcore/internal/transport"
)

func main() {
	logging.Init(slog.LevelInfo)

	cfg := config.LoadServer(config.ServerOptions{})

	reg := registry.New()
	hub := transport.NewHub(reg)
	go hub.Run()

	mux := http.NewServeMux()
	httpapi.Register(mux, hub, reg, cfg.PingInterval, cfg.PingTimeout)

	addr := ":" + cfg.Port
	slog.Info("signaling server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
