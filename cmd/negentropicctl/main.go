// Package main provides a headless CLI driver for the kernel's validation
// scenarios (§8): the canonical 10-year regeneration run (S1) and the
// shorter conservation/determinism/tamper checks (S2-S6).
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/dj-ccs/negentropic-kernel/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = embedded defaults)")
	outputDir := flag.String("output", "", "Output directory for run artifacts")
	scenario := flag.String("scenario", "s1", "Scenario to run: s1, s2, s3, s4, s5, s6, all")
	seed := flag.Uint64("seed", 0, "Override rng_seed (0 = use config's)")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *seed != 0 {
		cfg.RNGSeed = *seed
	}

	slog.Info("negentropicctl starting", "scenario", *scenario, "output", *outputDir)

	runners := map[string]func(*config.Config, string) error{
		"s1": runS1,
		"s2": runS2,
		"s3": runS3,
		"s4": runS4,
		"s5": runS5,
		"s6": runS6,
	}

	names := []string{*scenario}
	if *scenario == "all" {
		names = []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	}

	for _, name := range names {
		run, ok := runners[name]
		if !ok {
			log.Fatalf("unknown scenario %q", name)
		}
		scenarioCfg := *cfg
		scenarioCfg.Derived = cfg.Derived
		dir := *outputDir
		if *scenario == "all" {
			dir = *outputDir + "/" + name
			if err := os.MkdirAll(dir, 0755); err != nil {
				log.Fatalf("creating scenario output directory: %v", err)
			}
		}
		slog.Info("running scenario", "name", name)
		if err := run(&scenarioCfg, dir); err != nil {
			log.Fatalf("scenario %s failed: %v", name, err)
		}
		slog.Info("scenario complete", "name", name)
	}
}
