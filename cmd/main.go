package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dco-creatives/internal"
	"dco-creatives/internal/fonts"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/scheduler"
	"dco-creatives/internal/templates"
)

func main() {
	// Load .env file if it exists (try multiple paths)
	for _, path := range []string{".env", "../.env", "../../.env"} {
		_ = godotenv.Load(path)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.ErrorsPath, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Errorf("%v", err)
		log.Close()
		os.Exit(1)
	}
	log.Infof("shutdown complete")
	log.Close()
}

type service interface {
	Run(ctx context.Context) error
	Close()
}

var (
	setupFonts   = installFonts
	buildService = func(ctx context.Context, cfg internal.Config, log *logging.Logger) (service, error) {
		return scheduler.BuildService(ctx, cfg, log)
	}
)

// run returns once the service stops. Any error aborts the process.
func run(ctx context.Context, cfg internal.Config, log *logging.Logger) error {
	if err := setupFonts(ctx, cfg, log); err != nil {
		return fmt.Errorf("fonts: %w", err)
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer svc.Close()

	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	return nil
}

// installFonts fails only on platforms without a known font directory.
func installFonts(ctx context.Context, cfg internal.Config, log *logging.Logger) error {
	inst, err := fonts.NewInstaller(cfg.Render.AssetsDir, log)
	if err != nil {
		return err
	}
	want := templates.FontFiles()
	ready, err := inst.Install(ctx, want)
	if errors.Is(err, fonts.ErrUnsupportedPlatform) {
		return err
	}
	if err != nil {
		log.Warnf("fonts: %v", err)
	}
	if len(ready) < len(want) {
		log.Warnf("fonts: %d of %d fonts available, text may fall back to defaults", len(ready), len(want))
	}
	return nil
}
