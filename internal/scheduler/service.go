package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"dco-creatives/internal"
	"dco-creatives/internal/assets"
	"dco-creatives/internal/catalog"
	"dco-creatives/internal/goals"
	"dco-creatives/internal/httpapi"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/pipeline"
	"dco-creatives/internal/render"
	"dco-creatives/internal/s3"
	"dco-creatives/internal/sheets"
	"dco-creatives/internal/store"
	"dco-creatives/internal/templates"
)

type Service struct {
	cfg      internal.Config
	log      *logging.Logger
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	janitor  *TempJanitor
	server   *http.Server

	pg     *store.Postgres
	chrome *render.Chrome
}

// Pipeline exposes the orchestrator for one-shot runs.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipeline }

// BuildService connects every collaborator and registers the cron jobs.
// Jobs run on ctx, so cancelling it also cancels a run in progress.
func BuildService(ctx context.Context, cfg internal.Config, log *logging.Logger) (*Service, error) {
	s3c, err := s3.New(ctx, cfg.S3, log)
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.RunMigrations {
		if err := store.Migrate(cfg.Postgres.Addr.String()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Infof("migrations applied")
	}
	pg, err := store.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	st := store.New(pg)

	tpls, err := templates.Load()
	if err != nil {
		pg.Close()
		return nil, err
	}

	var opts []assets.Option
	if cfg.Drive.CredentialsFile != "" {
		drv, err := assets.NewDriveService(ctx, cfg.Drive.CredentialsFile)
		if err != nil {
			log.Warnf("drive api unavailable, using public links: %v", err)
		} else {
			opts = append(opts, assets.WithDrive(drv))
		}
	}
	loader := assets.NewLoader(cfg.Render.AssetsDir, log, opts...)
	chrome := render.NewChrome(cfg.Render.ChromePath, log)
	engine := render.NewEngine(cfg.Render, cfg.Catalog.Folder, loader, chrome, render.NewFFmpeg(cfg.Render.EncodeTimeout, log), s3c, log)

	pipe := pipeline.New(cfg, pipeline.Deps{
		Rows:      sheets.NewFetcher(cfg.Sheets, log),
		Store:     st,
		Goals:     goals.NewEvaluator(goals.StoreCounter{Store: st}, cfg.Schedule.Location()),
		Templates: tpls,
		Generator: engine,
		Publisher: catalog.NewPublisher(cfg.Catalog, st, s3c, log),
		Storage:   s3c,
	}, log)

	s := &Service{
		cfg:      cfg,
		log:      log,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Schedule.Location())),
		pipeline: pipe,
		janitor:  NewTempJanitor(cfg.Render.TempDir, cfg.Schedule.JanitorEvery, cfg.Schedule.StaleAfter, log),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           httpapi.NewHandler(ctx, pipe, log).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		pg:     pg,
		chrome: chrome,
	}

	if _, err := s.cron.AddFunc(cfg.Schedule.Process, s.job(ctx, pipeline.JobProcess)); err != nil {
		s.Close()
		return nil, fmt.Errorf("SCHEDULE_PROCESS: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.Schedule.Reset, s.job(ctx, pipeline.JobReset)); err != nil {
		s.Close()
		return nil, fmt.Errorf("SCHEDULE_RESET: %w", err)
	}
	return s, nil
}

func (s *Service) job(ctx context.Context, job pipeline.Job) func() {
	return func() {
		s.log.Infof("cron: %s", job)
		if err := s.pipeline.Run(ctx, job); err != nil {
			s.log.Errorf("cron %s: %v", job, err)
		}
	}
}

// Run serves the control API and the schedules until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.cron.Start()
	s.janitor.Start(ctx)

	go func() {
		s.log.Infof("http: listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("http: %v", err)
		}
	}()

	if s.cfg.Schedule.RunOnStart {
		go s.job(ctx, pipeline.JobProcess)()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
	s.janitor.Stop()

	ctxStop := s.cron.Stop()
	select {
	case <-ctxStop.Done():
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("cron stop timeout")
	}
}

// Close releases the browser and the database pool.
func (s *Service) Close() {
	s.chrome.Close()
	s.pg.Close()
}
