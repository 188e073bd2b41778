package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/config"
	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/server"
)

type fileConfig struct {
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

// serviceConfig is the resolved runtime configuration of one manager process.
type serviceConfig struct {
	File    config.AgentConfig
	Agent   agent.Config
	Gateway gateway.Config
	Server  server.Config
}

func defaultServiceConfig() (serviceConfig, error) {
	return resolve(config.DefaultAgentConfig())
}

// loadServiceConfig applies the keys defined in path over the defaults.
func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := config.DefaultAgentConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load rsvpctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return serviceConfig{}, fmt.Errorf("load rsvpctl config: unknown key %q", undecoded[0].String())
	}

	str := func(key, v string, dst *string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	str("agent_name", raw.AgentName, &cfg.AgentName)
	str("listen_addr", raw.ListenAddr, &cfg.ListenAddr)
	str("llm_address", raw.LLMAddress, &cfg.LLMAddress)
	str("llm_mode", raw.LLMMode, &cfg.LLMMode)
	str("gateway_url", raw.GatewayURL, &cfg.GatewayURL)
	str("canister_id", raw.CanisterID, &cfg.CanisterID)
	str("request_timeout", raw.RequestTimeout, &cfg.RequestTimeout)
	str("ingress_validity", raw.IngressValidity, &cfg.IngressValidity)
	str("mailbox", raw.Mailbox, &cfg.Mailbox)
	str("redis_url", raw.RedisURL, &cfg.RedisURL)

	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}
	if meta.IsDefined("rate_limit") {
		cfg.RateLimit = raw.RateLimit
	}
	if meta.IsDefined("rate_burst") {
		cfg.RateBurst = raw.RateBurst
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("reject_calls") {
		cfg.RejectCalls = raw.RejectCalls
	}

	return resolve(cfg)
}

func resolve(file config.AgentConfig) (serviceConfig, error) {
	if err := config.ValidateAgentConfig(file); err != nil {
		return serviceConfig{}, err
	}
	g, err := config.GatewayConfig(file)
	if err != nil {
		return serviceConfig{}, err
	}

	a := agent.DefaultConfig()
	a.Name = file.AgentName
	a.LLMAddress = file.LLMAddress
	if file.Workers > 0 {
		a.Workers = file.Workers
	}

	s := server.DefaultConfig()
	s.ListenAddr = file.ListenAddr
	s.CORSOrigins = file.CORSOrigins

	return serviceConfig{File: file, Agent: a, Gateway: g, Server: s}, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
