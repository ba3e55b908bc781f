package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Trade makes orders that cross the book trade instead of being rejected.
	Trade bool
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// QueueSize is the capacity of the parse -> apply channel.
	QueueSize int
	// RingSize is the capacity of the output ring buffer, a power of 2.
	RingSize int64
	// DumpBook logs the resting orders of every book once the input is exhausted.
	DumpBook bool
}

func Default() Config {
	return Config{
		Trade:     false,
		LogLevel:  "info",
		QueueSize: 4096,
		RingSize:  8192,
		DumpBook:  false,
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
// An explicitly given envPath must be readable; the default .env is optional.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return cfg, fmt.Errorf("load env file %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("OBREPLAY_TRADE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trade = b
		}
	}

	if v := os.Getenv("OBREPLAY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("OBREPLAY_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.QueueSize = n
		}
	}

	if v := os.Getenv("OBREPLAY_RING_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.RingSize = n
		}
	}

	if v := os.Getenv("OBREPLAY_DUMP_BOOK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DumpBook = b
		}
	}

	return cfg, nil
}
