package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/rsvpctl/internal/config"
	"github.com/danmuck/rsvpctl/internal/llm"
	"github.com/danmuck/rsvpctl/internal/mailbox"
	"github.com/danmuck/rsvpctl/internal/observability"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "llmsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, redisURL, name string
	flagSet := pflag.NewFlagSet("llmsim", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a TOML config (defaults when empty)")
	flagSet.StringVar(&redisURL, "redis", "", "override redis_url")
	flagSet.StringVar(&name, "name", "", "override agent_name")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := observability.InitLogger("llmsim")

	file := config.DefaultLLMConfig()
	if configPath != "" {
		loaded, err := config.LoadLLMConfig(configPath)
		if err != nil {
			return err
		}
		file = loaded
	}
	if redisURL != "" {
		file.RedisURL = redisURL
	}
	if name != "" {
		file.AgentName = name
	}
	if err := config.ValidateLLMConfig(file); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mb, err := mailbox.OpenRedis(ctx, mailbox.DefaultRedisConfig(file.RedisURL))
	if err != nil {
		return err
	}
	defer mb.Close()

	cfg := llm.DefaultConfig()
	cfg.Name = file.AgentName
	if file.Workers > 0 {
		cfg.Workers = file.Workers
	}
	sim, err := llm.NewAgent(cfg, mb, llm.Keyword{})
	if err != nil {
		return err
	}
	logger.Info().Str("address", cfg.Name).Msg("structured-output simulator ready")
	return sim.Run(ctx)
}
