// Package config loads the tunables named in the specification's
// constants table from environment variables (optionally via a sibling
// .env file), falling back to the compiled-in defaults. It never
// introduces a new required CLI argument — the argument contracts in
// cmd/ remain authoritative; this only adjusts the constants they use.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort             = 4567
	DefaultDataFile         = "weather_data.json"
	DefaultMaxStations      = 20
	DefaultExpiry           = 30 * time.Second
	DefaultSweepInterval    = 1 * time.Second
	DefaultProducerInterval = 10 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 5 * time.Second
)

// AggregatorConfig holds the aggregator's tunables.
type AggregatorConfig struct {
	DataFile      string
	MaxStations   int
	Expiry        time.Duration
	SweepInterval time.Duration
}

// ClientConfig holds the retry tunables shared by the producer and
// consumer clients.
type ClientConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// ProducerConfig holds the producer's own tunables in addition to the
// shared ClientConfig.
type ProducerConfig struct {
	ClientConfig
	UpdateInterval time.Duration
}

// loadEnvFile loads a sibling .env file if present; a missing file is
// not an error, only logged at INFO.
func loadEnvFile() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: no .env file found or error loading it: %v", err)
	}
}

// LoadAggregator reads the aggregator's tunables, falling back to the
// specification's compiled-in constants for anything unset or
// unparseable.
func LoadAggregator() *AggregatorConfig {
	loadEnvFile()
	return &AggregatorConfig{
		DataFile:      getenvDefault("WEATHER_DATA_FILE", DefaultDataFile),
		MaxStations:   getenvInt("STORE_MAX_STATIONS", DefaultMaxStations),
		Expiry:        getenvDurationMillis("STORE_EXPIRY_MS", DefaultExpiry),
		SweepInterval: getenvDurationSeconds("SWEEP_INTERVAL_SECONDS", DefaultSweepInterval),
	}
}

// LoadClient reads the retry tunables shared by both clients.
func LoadClient() *ClientConfig {
	loadEnvFile()
	return &ClientConfig{
		MaxRetries: getenvInt("CLIENT_MAX_RETRIES", DefaultMaxRetries),
		RetryDelay: getenvDurationMillis("CLIENT_RETRY_DELAY_MS", DefaultRetryDelay),
	}
}

// LoadProducer reads the producer's tunables.
func LoadProducer() *ProducerConfig {
	return &ProducerConfig{
		ClientConfig:   *LoadClient(),
		UpdateInterval: getenvDurationMillis("PRODUCER_UPDATE_INTERVAL_MS", DefaultProducerInterval),
	}
}

// ResolvePort implements the aggregator CLI's port argument contract: an
// optional first argument, defaulting to DefaultPort, with an
// unparseable value falling back to the default with a warning rather
// than aborting startup.
func ResolvePort(args []string) int {
	if len(args) == 0 || args[0] == "" {
		return DefaultPort
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		log.Printf("WARNING: invalid port %q, using default %d", args[0], DefaultPort)
		return DefaultPort
	}
	return port
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("WARNING: invalid %s=%q, using default %d", key, v, def)
	}
	return def
}

func getenvDurationMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Millisecond
		}
		log.Printf("WARNING: invalid %s=%q, using default %s", key, v, def)
	}
	return def
}

func getenvDurationSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
		log.Printf("WARNING: invalid %s=%q, using default %s", key, v, def)
	}
	return def
}
