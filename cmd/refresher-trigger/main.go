// Refresher Trigger — гейт-сервис запуска refresh-батчей.
//
// Trigger:
//   - Каждый тик оценивает условия запуска для своего региона
//   - Следит за дубликатами и чужими runs того же источника
//   - Ждёт загрузки priority-файлов до cutoff
//   - Проходной тик помечает run Submitted и запускает оркестратор
//
// Лидерство между репликами — через pg advisory lock.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Refresher/internal/audit"
	"github.com/shaiso/Refresher/internal/config"
	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/engine"
	"github.com/shaiso/Refresher/internal/mq"
	"github.com/shaiso/Refresher/internal/notify"
	"github.com/shaiso/Refresher/internal/readiness"
	"github.com/shaiso/Refresher/internal/repo"
	"github.com/shaiso/Refresher/internal/runner"
	"github.com/shaiso/Refresher/internal/telemetry"
	"github.com/shaiso/Refresher/internal/trigger"
	"github.com/shaiso/Refresher/internal/worklist"
)

const triggerLockKey int64 = 727272

// runnerLauncher запускает оркестратор для прошедшего гейт run.
type runnerLauncher struct {
	r *runner.Runner
}

func (l *runnerLauncher) Launch(ctx context.Context, run *domain.RunContext) error {
	_, err := l.r.Run(ctx, run)
	return err
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config")
	flag.Parse()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting refresher-trigger")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger = telemetry.WithRegion(logger, cfg.Run.Region)

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DB.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	auditRepo := repo.NewAuditRepo(pool)
	worklistRepo := repo.NewWorklistRepo(pool)
	recorder := audit.New(audit.Config{Store: auditRepo, Logger: logger})

	// RabbitMQ: недоступность транспорта уведомлений не блокирует гейт
	var notifier *notify.Notifier
	mqURL := cfg.MQ.URL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, notifications disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		notifier = notify.New(notify.Config{
			Publisher: mq.NewPublisher(mqConn, logger),
			Env:       cfg.Notify.Env,
			Job:       cfg.Notify.Job,
			ReportURL: cfg.Notify.ReportURL,
			Logger:    logger,
		})
	}

	// Движок выполнения
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Engine.AWSRegion))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	client := engine.NewRedshiftClient(redshiftdata.NewFromConfig(awsCfg), engine.RedshiftConfig{
		ClusterIdentifier: cfg.Engine.ClusterIdentifier,
		Database:          cfg.Engine.Database,
		SecretARN:         cfg.Engine.SecretARN,
	})
	poller := engine.NewPoller(engine.PollerConfig{
		Client:   client,
		Interval: cfg.Engine.PollInterval(),
		Logger:   logger,
	})

	rcfg := runner.Config{
		Worklist: worklist.New(worklist.Config{
			Source:     worklistRepo,
			DataSource: cfg.Run.DataSource,
			Exclude:    cfg.Run.Exclude,
			Codebase:   cfg.Run.Codebase,
			Logger:     logger,
		}),
		Submitter:  client,
		Awaiter:    poller,
		Recorder:   recorder,
		Attempts:   cfg.Runner.Attempts,
		RetryDelay: cfg.Runner.RetryDelay(),
		Logger:     logger,
	}
	// Типизированный nil в interface-поле не считается nil:
	// поле заполняется только при живом транспорте.
	if notifier != nil {
		rcfg.Notifier = notifier
	}
	r := runner.New(rcfg)

	// Проверка priority-файлов (опциональна)
	var checker *readiness.Checker
	if cfg.Readiness.Enabled() {
		minioClient, err := readiness.NewMinIOClient(readiness.MinioConfig{
			Endpoint:  cfg.Readiness.Endpoint,
			AccessKey: cfg.Readiness.AccessKey,
			SecretKey: cfg.Readiness.SecretKey,
			Region:    cfg.Readiness.Region,
			UseSSL:    cfg.Readiness.UseSSL,
			Bucket:    cfg.Readiness.Bucket,
		})
		if err != nil {
			logger.Error("failed to create object store client", "error", err)
			os.Exit(1)
		}
		checker = readiness.New(readiness.Config{
			Lister:        readiness.NewMinioLister(minioClient, cfg.Readiness.Bucket),
			LandingPrefix: cfg.Readiness.LandingPrefix,
			ArchivePrefix: cfg.Readiness.ArchivePrefix,
			Logger:        logger,
		})
	}

	// Cutoff-окно (опционально)
	var window *trigger.Window
	if cfg.Trigger.Schedule != "" {
		window, err = trigger.NewWindow(cfg.Trigger.Schedule, cfg.Trigger.Timezone, cfg.Trigger.CutoffWindow())
		if err != nil {
			logger.Error("invalid trigger schedule", "error", err)
			os.Exit(1)
		}
	}

	var readinessChecker trigger.ReadinessChecker
	if checker != nil {
		readinessChecker = checker
	}

	tcfg := trigger.Config{
		Store:        auditRepo,
		Delays:       recorder,
		Priority:     worklistRepo,
		Checker:      readinessChecker,
		Launcher:     &runnerLauncher{r: r},
		Cutoff:       window,
		Region:       cfg.Run.Region,
		ReportSource: cfg.Run.ReportSource,
		DataSource:   cfg.Run.DataSource,
		Codebase:     cfg.Run.Codebase,
		Logger:       logger,
	}
	if notifier != nil {
		tcfg.Notifier = notifier
	}
	gate := trigger.New(tcfg)

	// trigger loop
	go func() {
		tk := time.NewTicker(cfg.Trigger.Tick())
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", triggerLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", triggerLockKey).Scan(&ok); err != nil {
						logger.Warn("leadership lock failed", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				if err := gate.Tick(ctx); err != nil {
					logger.Error("trigger tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8084"
	if v := os.Getenv("TRIGGER_PORT"); v != "" {
		port = ":" + v
	}

	srv := &http.Server{Addr: port, Handler: mux}
	go func() {
		logger.Info("listening", "addr", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("refresher-trigger stopped")
}
