// Refresher Runner — one-shot оркестратор одного refresh-батча.
//
// Runner:
//   - Читает worklist региона из audit-базы
//   - Выполняет хранимые процедуры строго по порядку с bounded retry
//   - Ведёт audit-журнал и отправляет уведомления
//
// Exit-код ненулевой, если батч остановлен на упавшей единице работы,
// чтобы внешний оркестратор (warehouse-пайплайн) не запускал
// зависимые шаги.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"

	"github.com/shaiso/Refresher/internal/audit"
	"github.com/shaiso/Refresher/internal/config"
	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/engine"
	"github.com/shaiso/Refresher/internal/mq"
	"github.com/shaiso/Refresher/internal/notify"
	"github.com/shaiso/Refresher/internal/repo"
	"github.com/shaiso/Refresher/internal/runner"
	"github.com/shaiso/Refresher/internal/telemetry"
	"github.com/shaiso/Refresher/internal/worklist"
)

func main() {
	var configPath string
	var batchDate string
	flag.StringVar(&configPath, "config", "", "path to YAML config")
	flag.StringVar(&batchDate, "date", "", "batch date YYYY-MM-DD (default: today)")
	flag.Parse()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting refresher-runner")

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

	date := time.Now().UTC()
	if batchDate != "" {
		date, err = time.Parse(time.DateOnly, batchDate)
		if err != nil {
			logger.Error("invalid -date", "error", err)
			os.Exit(1)
		}
	}

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

	// RabbitMQ: недоступность транспорта уведомлений не блокирует батч
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
		Recorder:   audit.New(audit.Config{Store: auditRepo, Logger: logger}),
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

	run := &domain.RunContext{
		Region:       cfg.Run.Region,
		BatchDate:    date,
		ReportSource: cfg.Run.ReportSource,
		Codebase:     cfg.Run.Codebase,
	}

	outcome, err := r.Run(ctx, run)
	switch {
	case err == nil:
		logger.Info("refresher-runner finished",
			"status", outcome.Status,
			"duration", outcome.Duration(),
		)
	case errors.Is(err, runner.ErrAuditDegraded):
		// Батч успешен, журнал мог отстать — не повод для ненулевого exit.
		logger.Warn("run finished with degraded audit trail", "error", err)
	default:
		logger.Error("refresher-runner failed",
			"status", outcome.Status,
			"error", err,
		)
		os.Exit(1)
	}
}
