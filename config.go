package sioemit

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config carries the settings the binaries read from the environment.
// Prefix and Parser must match the adapter configuration of the target
// cluster; nothing at runtime can detect a mismatch.
type Config struct {
	Environment string
	Port        int

	RedisURL string

	Prefix string
	Parser Parser
}

const (
	EnvironmentProduction = "production"
)

func NewConfig() (Config, error) {
	config := Config{
		Environment: os.Getenv("ENVIRONMENT"),
		Port:        8082,
		RedisURL:    os.Getenv("REDIS_URL"),
		Prefix:      os.Getenv("CHANNEL_PREFIX"),
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return config, fmt.Errorf("invalid port: %w", err)
		}
		config.Port = p
	}

	switch parser := os.Getenv("PARSER"); parser {
	case "", "common":
		config.Parser = ParserCommon
	case "msgpack":
		config.Parser = ParserMsgPack
	default:
		return config, fmt.Errorf("unknown parser %q, expected common or msgpack", parser)
	}

	if config.RedisURL == "" {
		return config, errors.New("missing redis url")
	}

	return config, nil
}

// Emitter returns a builder preconfigured with the prefix and parser
// from the config.
func (c Config) Emitter() Emitter {
	e := New()
	e.parser = c.Parser
	if c.Prefix != "" {
		e = e.Prefix(c.Prefix)
	}
	return e
}
