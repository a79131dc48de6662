package main

import (
	"context"
	"log"

	"github.com/aquainfra/mitgcm-ogc-backend/config"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/bootstrap"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/cleanup"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm"
	ogchttp "github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/http"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/process"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/repository"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/service"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/results"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	procCfg, err := config.LoadProcessConfig()
	if err != nil {
		log.Fatalf("load process config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	// The summary database is optional; without it the server still
	// executes jobs, it just keeps no accounting.
	var (
		db          *pgxpool.Pool
		summaryRepo *repository.SummaryRepository
		summaries   service.SummaryRecorder
		stats       ogchttp.StatsProvider
	)
	if cfg.Database.DSN != "" {
		db, err = bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
		if err != nil {
			log.Fatalf("connect db: %v", err)
		}
		defer db.Close()

		summaryRepo = repository.NewSummaryRepository(db)
		if err := summaryRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("prepare db schema: %v", err)
		}
		summaries = summaryRepo
		stats = summaryRepo
	} else {
		log.Println("DB_DSN not set, job summaries disabled")
	}

	var (
		store      results.Store
		localStore *results.LocalStore
	)
	switch cfg.Results.Backend {
	case "s3":
		store, err = results.NewS3Store(ctx, results.S3Options{
			Bucket:    cfg.Results.S3Bucket,
			Prefix:    cfg.Results.S3Prefix,
			PublicURL: cfg.Results.S3PublicURL,
			Region:    cfg.Results.AWSRegion,
		})
		if err != nil {
			log.Fatalf("init s3 result store: %v", err)
		}
	default:
		localStore, err = results.NewLocalStore(procCfg.DownloadDir, procCfg.DownloadURL)
		if err != nil {
			log.Fatalf("init local result store: %v", err)
		}
		store = localStore
	}

	registry := process.NewRegistry()
	registry.Register(mitgcm.NewBaroclinicGyreProcessor(procCfg, store))

	jobRepo := repository.NewJobRepository(rdb)
	jobService := service.NewJobService(jobRepo, summaries, registry, service.Options{
		ExecTimeout:       cfg.Exec.Timeout,
		MaxConcurrentJobs: cfg.Exec.MaxConcurrentJobs,
	})

	handler := ogchttp.New(jobService, registry, stats, cfg.Exec.RatePerSecond)

	if localStore != nil {
		scheduler := cleanup.NewScheduler(localStore, cfg.Results.TTL, cfg.Results.CleanupSchedule)
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "mitgcm-ogc-backend",
		Version:     cfg.App.Version,
		APIKey:      cfg.App.APIKey,
		Redis:       rdb,
		DB:          db,
		Processes:   handler,
		Downloads:   localStore,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
