// Package config loads the tunables named in the external interfaces spec
// with the precedence chain the teacher CLI uses: explicit option > env var
// > hard default. github.com/joho/godotenv optionally loads a .env file
// before the environment is read, matching the rest of the retrieved pack.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror spec.md §6 exactly.
const (
	DefaultPort                = "3000"
	DefaultSTUNServers         = "stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"
	DefaultMaxPeerConnections  = 10
	DefaultCleanupInterval     = 30 * time.Second
	DefaultStaleThreshold      = 60 * time.Second
	DefaultNegotiationDebounce = 300 * time.Millisecond
	DefaultDisconnectGrace     = 5 * time.Second
	DefaultReconnectDelay      = 2 * time.Second
	DefaultStreamSwapDelay     = 500 * time.Millisecond
	DefaultPingInterval        = 25 * time.Second
	DefaultPingTimeout         = 60 * time.Second
)

// ServerConfig holds the signaling server's runtime tunables.
type ServerConfig struct {
	Port             string
	PingInterval     time.Duration
	PingTimeout      time.Duration
	MetricsNamespace string
}

// ClientConfig holds the Go client's runtime tunables: how it reaches the
// signaling server and how its peer connection manager and negotiation
// state machines behave.
type ClientConfig struct {
	ServerURL           string
	STUNServers         []string
	MaxPeerConnections  int
	CleanupInterval     time.Duration
	StaleThreshold      time.Duration
	NegotiationDebounce time.Duration
	DisconnectGrace     time.Duration
	ReconnectDelay      time.Duration
	StreamSwapDelay     time.Duration
}

// ServerOptions carries CLI-flag overrides for LoadServer.
type ServerOptions struct {
	Port string
}

// ClientOptions carries CLI-flag overrides for LoadClient.
type ClientOptions struct {
	ServerURL  string
	STUNServer string
}

// loadDotEnv loads a .env file into the process environment if present.
// A missing .env is not an error — most deployments set env vars directly.
func loadDotEnv() {
	_ = godotenv.Load()
}

// LoadServer reads the signaling server's configuration.
func LoadServer(opts ServerOptions) *ServerConfig {
	loadDotEnv()

	port := firstNonEmpty(opts.Port, os.Getenv("PORT"), DefaultPort)

	return &ServerConfig{
		Port:             port,
		PingInterval:     envDuration("PING_INTERVAL", DefaultPingInterval),
		PingTimeout:      envDuration("PING_TIMEOUT", DefaultPingTimeout),
		MetricsNamespace: firstNonEmpty(os.Getenv("METRICS_NAMESPACE"), "signalcore"),
	}
}

// LoadClient reads the Go WebRTC client's configuration.
func LoadClient(opts ClientOptions) *ClientConfig {
	loadDotEnv()

	serverURL := firstNonEmpty(opts.ServerURL, os.Getenv("SIGNAL_SERVER_URL"), "ws://localhost:3000/ws")
	stunCSV := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVERS"), DefaultSTUNServers)

	return &ClientConfig{
		ServerURL:           serverURL,
		STUNServers:         splitCSV(stunCSV),
		MaxPeerConnections:  envInt("MAX_PEER_CONNECTIONS", DefaultMaxPeerConnections),
		CleanupInterval:     envDuration("CLEANUP_INTERVAL", DefaultCleanupInterval),
		StaleThreshold:      envDuration("STALE_THRESHOLD", DefaultStaleThreshold),
		NegotiationDebounce: envDuration("NEGOTIATION_DEBOUNCE", DefaultNegotiationDebounce),
		DisconnectGrace:     envDuration("DISCONNECT_GRACE", DefaultDisconnectGrace),
		ReconnectDelay:      envDuration("RECONNECT_DELAY", DefaultReconnectDelay),
		StreamSwapDelay:     envDuration("STREAM_SWAP_DELAY", DefaultStreamSwapDelay),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
