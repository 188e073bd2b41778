// Package config defines the on-disk TOML schema of rsvpctl processes and
// validates it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/llm"
	"github.com/danmuck/rsvpctl/internal/server"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalid = errors.New("config: invalid")

const (
	LLMModeLocal  = "local"
	LLMModeRemote = "remote"

	MailboxMemory = "memory"
	MailboxRedis  = "redis"
)

// AgentConfig is the file schema of the rsvpctl manager.
type AgentConfig struct {
	AgentName       string   `toml:"agent_name"`
	ListenAddr      string   `toml:"listen_addr"`
	CORSOrigins     []string `toml:"cors_origins"`
	LLMAddress      string   `toml:"llm_address"`
	LLMMode         string   `toml:"llm_mode"`
	GatewayURL      string   `toml:"gateway_url"`
	CanisterID      string   `toml:"canister_id"`
	RequestTimeout  string   `toml:"request_timeout"`
	IngressValidity string   `toml:"ingress_validity"`
	RateLimit       float64  `toml:"rate_limit"`
	RateBurst       int      `toml:"rate_burst"`
	Mailbox         string   `toml:"mailbox"`
	RedisURL        string   `toml:"redis_url"`
	Workers         int      `toml:"workers"`
	RejectCalls     bool     `toml:"reject_calls"`
}

// LLMConfig is the file schema of the standalone simulator.
type LLMConfig struct {
	AgentName string `toml:"agent_name"`
	RedisURL  string `toml:"redis_url"`
	Workers   int    `toml:"workers"`
}

func DefaultAgentConfig() AgentConfig {
	a := agent.DefaultConfig()
	g := gateway.DefaultConfig()
	s := server.DefaultConfig()
	return AgentConfig{
		AgentName:       a.Name,
		ListenAddr:      s.ListenAddr,
		CORSOrigins:     []string{"http://localhost:3000"},
		LLMAddress:      a.LLMAddress,
		LLMMode:         LLMModeLocal,
		GatewayURL:      g.BaseURL,
		CanisterID:      g.CanisterID,
		RequestTimeout:  g.RequestTimeout.String(),
		IngressValidity: g.IngressValidity.String(),
		RateLimit:       g.RateLimit,
		RateBurst:       g.RateBurst,
		Mailbox:         MailboxMemory,
		RedisURL:        "redis://127.0.0.1:6379/0",
		Workers:         a.Workers,
	}
}

func DefaultLLMConfig() LLMConfig {
	cfg := llm.DefaultConfig()
	return LLMConfig{
		AgentName: cfg.Name,
		RedisURL:  "redis://127.0.0.1:6379/0",
		Workers:   cfg.Workers,
	}
}

// LoadAgentConfig reads path over the defaults and validates the result.
func LoadAgentConfig(path string) (AgentConfig, error) {
	cfg := DefaultAgentConfig()
	if err := loadToml(path, &cfg); err != nil {
		return AgentConfig{}, err
	}
	if err := ValidateAgentConfig(cfg); err != nil {
		return AgentConfig{}, err
	}
	return cfg, nil
}

func LoadLLMConfig(path string) (LLMConfig, error) {
	cfg := DefaultLLMConfig()
	if err := loadToml(path, &cfg); err != nil {
		return LLMConfig{}, err
	}
	if err := ValidateLLMConfig(cfg); err != nil {
		return LLMConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateAgentConfig(cfg AgentConfig) error {
	if err := validateAddress("agent_name", cfg.AgentName); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("%w: listen_addr is required", ErrInvalid)
	}
	if err := validateAddress("llm_address", cfg.LLMAddress); err != nil {
		return err
	}
	if cfg.LLMAddress == cfg.AgentName {
		return fmt.Errorf("%w: llm_address must differ from agent_name", ErrInvalid)
	}
	switch cfg.LLMMode {
	case LLMModeLocal, LLMModeRemote:
	default:
		return fmt.Errorf("%w: llm_mode %q (want local|remote)", ErrInvalid, cfg.LLMMode)
	}
	if err := validateMailbox(cfg.Mailbox, cfg.RedisURL); err != nil {
		return err
	}
	if cfg.LLMMode == LLMModeRemote && cfg.Mailbox != MailboxRedis {
		return fmt.Errorf("%w: llm_mode remote requires mailbox redis", ErrInvalid)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalid)
	}
	if cfg.RateBurst < 0 {
		return fmt.Errorf("%w: rate_burst must be >= 0", ErrInvalid)
	}
	g, err := GatewayConfig(cfg)
	if err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func ValidateLLMConfig(cfg LLMConfig) error {
	if err := validateAddress("agent_name", cfg.AgentName); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return fmt.Errorf("%w: redis_url is required", ErrInvalid)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalid)
	}
	return nil
}

// GatewayConfig maps the gateway keys of cfg onto gateway.Config.
func GatewayConfig(cfg AgentConfig) (gateway.Config, error) {
	g := gateway.DefaultConfig()
	g.BaseURL = strings.TrimSpace(cfg.GatewayURL)
	g.CanisterID = strings.TrimSpace(cfg.CanisterID)
	g.RateLimit = cfg.RateLimit
	if cfg.RateBurst > 0 {
		g.RateBurst = cfg.RateBurst
	}
	var err error
	if g.RequestTimeout, err = parsePositive("request_timeout", cfg.RequestTimeout); err != nil {
		return gateway.Config{}, err
	}
	if g.IngressValidity, err = parsePositive("ingress_validity", cfg.IngressValidity); err != nil {
		return gateway.Config{}, err
	}
	if cfg.RejectCalls {
		g.Finalizer = gateway.RejectedReply{}
	}
	return g, nil
}

func parsePositive(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", ErrInvalid, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalid, key)
	}
	return d, nil
}

func validateAddress(key, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, key)
	}
	if strings.ContainsAny(v, " \t\r\n") {
		return fmt.Errorf("%w: %s %q contains whitespace", ErrInvalid, key, v)
	}
	return nil
}

func validateMailbox(kind, redisURL string) error {
	switch kind {
	case MailboxMemory:
		return nil
	case MailboxRedis:
		if strings.TrimSpace(redisURL) == "" {
			return fmt.Errorf("%w: mailbox redis requires redis_url", ErrInvalid)
		}
		return nil
	default:
		return fmt.Errorf("%w: mailbox %q (want memory|redis)", ErrInvalid, kind)
	}
}
