// Package config provides centralized configuration management.
// All settings default sanely and can be overridden via environment
// variables; other packages take values from here instead of reading the
// environment themselves.
package config

import (
	"os"
	"strconv"
	"time"
)

// GameConfig holds per-session gameplay settings.
type GameConfig struct {
	GridWidth       int // arena width in cells
	GridHeight      int // arena height in cells
	ActionsPerRound int // moves/attacks per turn before rotation
	TerrainMax      int // max terrain modifier, 0 for a flat map
	SessionTTLHours int // expiry age for unstarted sessions
}

// DefaultGame returns the default gameplay configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		GridWidth:       5,
		GridHeight:      5,
		ActionsPerRound: 2,
		TerrainMax:      0,
		SessionTTLHours: 24,
	}
}

// GameFromEnv returns gameplay configuration with environment overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()
	if w := getEnvInt("GRID_WIDTH", 0); w > 0 {
		cfg.GridWidth = w
	}
	if h := getEnvInt("GRID_HEIGHT", 0); h > 0 {
		cfg.GridHeight = h
	}
	if a := getEnvInt("ACTIONS_PER_ROUND", 0); a > 0 {
		cfg.ActionsPerRound = a
	}
	if m := getEnvInt("TERRAIN_MAX", -1); m >= 0 {
		cfg.TerrainMax = m
	}
	if ttl := getEnvInt("SESSION_TTL_HOURS", 0); ttl > 0 {
		cfg.SessionTTLHours = ttl
	}
	return cfg
}

// SessionTTL returns the expiry age as a duration.
func (c GameConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 3000}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	return cfg
}

// StorageConfig selects and locates the session store.
type StorageConfig struct {
	Driver string // "memory" or "sqlite"
	Path   string // database path for the sqlite driver
}

// DefaultStorage returns the default storage configuration.
func DefaultStorage() StorageConfig {
	return StorageConfig{
		Driver: "memory",
		Path:   "sessions.db",
	}
}

// StorageFromEnv returns storage configuration with environment overrides.
func StorageFromEnv() StorageConfig {
	cfg := DefaultStorage()
	if d := os.Getenv("STORAGE_DRIVER"); d != "" {
		cfg.Driver = d
	}
	if p := os.Getenv("STORAGE_PATH"); p != "" {
		cfg.Path = p
	}
	return cfg
}

// LimitsConfig controls connection and command abuse protection.
type LimitsConfig struct {
	MaxWSConnections  int     // total concurrent websocket clients
	MaxConnsPerIP     int     // concurrent websocket clients per IP
	CommandsPerSecond float64 // per-connection command rate
	CommandBurst      int     // per-connection command burst
	RequestsPerSecond float64 // per-IP HTTP request rate
	RequestBurst      int     // per-IP HTTP request burst
}

// DefaultLimits returns the default abuse-protection limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		MaxWSConnections:  500,
		MaxConnsPerIP:     10,
		CommandsPerSecond: 20,
		CommandBurst:      40,
		RequestsPerSecond: 10,
		RequestBurst:      20,
	}
}

// LimitsFromEnv returns limits with environment overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()
	if v := getEnvInt("MAX_WS_CONNECTIONS", 0); v > 0 {
		cfg.MaxWSConnections = v
	}
	if v := getEnvInt("MAX_CONNS_PER_IP", 0); v > 0 {
		cfg.MaxConnsPerIP = v
	}
	if v := getEnvFloat("COMMANDS_PER_SECOND", 0); v > 0 {
		cfg.CommandsPerSecond = v
	}
	if v := getEnvInt("COMMAND_BURST", 0); v > 0 {
		cfg.CommandBurst = v
	}
	if v := getEnvFloat("REQUESTS_PER_SECOND", 0); v > 0 {
		cfg.RequestsPerSecond = v
	}
	if v := getEnvInt("REQUEST_BURST", 0); v > 0 {
		cfg.RequestBurst = v
	}
	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game    GameConfig
	Server  ServerConfig
	Storage StorageConfig
	Limits  LimitsConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:    GameFromEnv(),
		Server:  ServerFromEnv(),
		Storage: StorageFromEnv(),
		Limits:  LimitsFromEnv(),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
