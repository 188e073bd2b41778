package main

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/danmuck/rsvpctl/internal/config"
	"github.com/spf13/pflag"
)

func defaultPath(kind string) (string, error) {
	switch kind {
	case config.KindAgent:
		return filepath.Join("cmd", "rsvpctl", "config.toml"), nil
	case config.KindLLM:
		return filepath.Join("cmd", "llmsim", "config.toml"), nil
	default:
		return "", errors.New("unknown kind: " + kind)
	}
}

func main() {
	flagSet := pflag.NewFlagSet("configgen", pflag.ExitOnError)
	kind := flagSet.String("kind", config.KindAgent, "config kind: agent|llm")
	output := flagSet.StringP("output", "o", "", "output path for config template")
	validate := flagSet.Bool("validate", false, "validate an existing config file")
	input := flagSet.StringP("input", "i", "", "config path for validation (defaults to per-kind cmd path)")
	force := flagSet.Bool("force", false, "overwrite existing config file")
	_ = flagSet.Parse(os.Args[1:])

	if *validate {
		path := *input
		if path == "" {
			p, err := defaultPath(*kind)
			if err != nil {
				log.Fatal(err)
			}
			path = p
		}
		if err := config.Validate(path, *kind); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		p, err := defaultPath(*kind)
		if err != nil {
			log.Fatal(err)
		}
		target = p
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
