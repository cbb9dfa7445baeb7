package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dco-creatives/internal"
	"dco-creatives/internal/fonts"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/pipeline"
	"dco-creatives/internal/scheduler"
	"dco-creatives/internal/templates"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	var (
		process = flag.Bool("process", false, "Run one processing cycle over the sheet and publish the feeds")
		reset   = flag.Bool("reset", false, "Mark every product out of stock and publish the feeds")
		publish = flag.Bool("publish", false, "Publish the feeds from the stored products")
		fontsF  = flag.Bool("fonts", false, "Install the template fonts")
	)
	flag.Parse()

	if !*process && !*reset && !*publish && !*fontsF {
		fmt.Println("Usage: process [-fonts] [-process] [-reset] [-publish]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.ErrorsPath, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *fontsF {
		inst, err := fonts.NewInstaller(cfg.Render.AssetsDir, log)
		if err != nil {
			log.Errorf("fonts: %v", err)
			os.Exit(1)
		}
		ready, err := inst.Install(ctx, templates.FontFiles())
		if err != nil {
			log.Errorf("fonts: %v", err)
			os.Exit(1)
		}
		fmt.Printf("%d fonts installed\n", len(ready))
	}

	var jobs []pipeline.Job
	if *process {
		jobs = append(jobs, pipeline.JobProcess)
	}
	if *reset {
		jobs = append(jobs, pipeline.JobReset)
	}
	if *publish {
		jobs = append(jobs, pipeline.JobPublish)
	}
	if len(jobs) == 0 {
		return
	}

	svc, err := scheduler.BuildService(ctx, cfg, log)
	if err != nil {
		log.Errorf("build service: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	failed := false
	for _, job := range jobs {
		fmt.Printf("=== %s ===\n", job)
		if err := svc.Pipeline().Run(ctx, job); err != nil {
			log.Errorf("%s: %v", job, err)
			failed = true
		}
	}
	if failed {
		svc.Close()
		log.Close()
		os.Exit(1)
	}
}
