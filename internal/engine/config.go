package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	APIKey       string        // YouTube Data API v3 key; empty enables the keyless fallbacks
	Workers      int           // concurrent search units
	PageSize     int64         // channel enumeration page size (Data API max: 50)
	FetchTimeout time.Duration // deadline applied to each upstream call
	MaxBodyBytes int64         // read cap for scraped watch pages
	HTTPClient   *http.Client
	Debug        bool
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (scan, sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
