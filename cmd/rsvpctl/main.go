package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/config"
	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/llm"
	"github.com/danmuck/rsvpctl/internal/mailbox"
	"github.com/danmuck/rsvpctl/internal/observability"
	"github.com/danmuck/rsvpctl/internal/server"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rsvpctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, listenAddr string
	flagSet := pflag.NewFlagSet("rsvpctl", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a TOML config (defaults when empty)")
	flagSet.StringVar(&listenAddr, "listen", "", "override listen_addr")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := observability.InitLogger("rsvpctl")

	cfg, err := defaultServiceConfig()
	if configPath != "" {
		cfg, err = loadServiceConfig(configPath)
	}
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mb, err := openMailbox(ctx, cfg.File)
	if err != nil {
		return err
	}
	defer mb.Close()

	logger.Info().
		Str("agent", cfg.Agent.Name).
		Str("gateway", cfg.Gateway.BaseURL).
		Str("canister", cfg.Gateway.CanisterID).
		Str("mailbox", cfg.File.Mailbox).
		Str("llm_mode", cfg.File.LLMMode).
		Msg("rsvpctl starting")

	return gateway.WithClient(cfg.Gateway, func(client *gateway.Client) error {
		return serve(ctx, cfg, mb, client)
	})
}

func serve(ctx context.Context, cfg serviceConfig, mb mailbox.Mailbox, client *gateway.Client) error {
	manager, err := agent.NewManager(cfg.Agent, mb, client)
	if err != nil {
		return err
	}
	ingress := server.New(cfg.Server, manager, mb)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gctx) })
	if cfg.File.LLMMode == config.LLMModeLocal {
		simCfg := llm.DefaultConfig()
		simCfg.Name = cfg.Agent.LLMAddress
		sim, err := llm.NewAgent(simCfg, mb, llm.Keyword{})
		if err != nil {
			return err
		}
		g.Go(func() error { return sim.Run(gctx) })
	}
	g.Go(func() error { return ingress.Run(gctx) })
	return g.Wait()
}

func openMailbox(ctx context.Context, file config.AgentConfig) (mailbox.Mailbox, error) {
	switch file.Mailbox {
	case config.MailboxRedis:
		return mailbox.OpenRedis(ctx, mailbox.DefaultRedisConfig(file.RedisURL))
	default:
		return mailbox.NewMemory(mailbox.DefaultQueueDepth), nil
	}
}
