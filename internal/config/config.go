// Package config — файловая конфигурация сервисов Refresher.
//
// Конфигурация читается из YAML-файла (путь — флаг -config либо
// переменная REFRESHER_CONFIG), отдельные значения переопределяются
// переменными окружения. Нулевые значения заменяются дефолтами
// на стороне потребителей (Config-структуры компонентов).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config — корневая конфигурация.
type Config struct {
	// Run — идентичность обслуживаемых батчей.
	Run RunConfig `yaml:"run"`

	// DB — DSN audit-базы. Переопределяется DB_URL.
	DB DBConfig `yaml:"db"`

	// Engine — движок выполнения хранимых процедур.
	Engine EngineConfig `yaml:"engine"`

	// Runner — бюджет повторов оркестратора.
	Runner RunnerConfig `yaml:"runner"`

	// MQ — транспорт уведомлений. Переопределяется RABBITMQ_URL.
	MQ MQConfig `yaml:"mq"`

	// Notify — содержимое уведомлений.
	Notify NotifyConfig `yaml:"notify"`

	// Readiness — объектное хранилище с priority-файлами.
	Readiness ReadinessConfig `yaml:"readiness"`

	// Trigger — гейт-сервис.
	Trigger TriggerConfig `yaml:"trigger"`
}

// RunConfig — идентичность батча.
type RunConfig struct {
	// Region — регион отчёта (EMEA, AMS, APJ).
	Region string `yaml:"region"`

	// ReportSource — класс run (SPDST, BMT).
	ReportSource string `yaml:"report_source"`

	// DataSource — тег для LIKE-фильтра worklist (например "BMT").
	DataSource string `yaml:"data_source"`

	// Exclude инвертирует фильтр: всё, кроме DataSource.
	Exclude bool `yaml:"exclude"`

	// Codebase — вариант worklist (пустая строка — без фильтра).
	Codebase string `yaml:"codebase"`
}

// DBConfig — audit-база.
type DBConfig struct {
	URL string `yaml:"url"`
}

// EngineConfig — движок выполнения.
type EngineConfig struct {
	ClusterIdentifier string `yaml:"cluster_identifier"`
	Database          string `yaml:"database"`
	SecretARN         string `yaml:"secret_arn"`
	AWSRegion         string `yaml:"aws_region"`

	// PollIntervalSec — интервал опроса статуса выражения (default: 120).
	PollIntervalSec int `yaml:"poll_interval_sec"`
}

// PollInterval возвращает интервал опроса.
func (c EngineConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// RunnerConfig — бюджет повторов оркестратора.
type RunnerConfig struct {
	// Attempts — попытки на одну единицу работы (default: 3).
	Attempts int `yaml:"attempts"`

	// RetryDelaySec — пауза между попытками (default: 120).
	RetryDelaySec int `yaml:"retry_delay_sec"`
}

// RetryDelay возвращает паузу между попытками.
func (c RunnerConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}

// MQConfig — транспорт уведомлений.
type MQConfig struct {
	URL string `yaml:"url"`
}

// NotifyConfig — содержимое уведомлений.
type NotifyConfig struct {
	// Env — имя окружения в теме уведомления (например "PROD").
	Env string `yaml:"env"`

	// Job — человекочитаемое имя задания.
	Job string `yaml:"job"`

	// ReportURL — ссылка на портал отчётов.
	ReportURL string `yaml:"report_url"`
}

// ReadinessConfig — хранилище priority-файлов.
type ReadinessConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`

	// LandingPrefix и ArchivePrefix — префиксы входящих и загруженных файлов.
	LandingPrefix string `yaml:"landing_prefix"`
	ArchivePrefix string `yaml:"archive_prefix"`
}

// Enabled сообщает, настроено ли хранилище.
func (c ReadinessConfig) Enabled() bool {
	return c.Endpoint != ""
}

// TriggerConfig — гейт-сервис.
type TriggerConfig struct {
	// Schedule — cron-выражение номинального старта (например "0 2 * * *").
	Schedule string `yaml:"schedule"`

	// Timezone — таймзона региона (default: UTC).
	Timezone string `yaml:"timezone"`

	// CutoffWindowMin — окно ожидания файлов после номинального старта.
	CutoffWindowMin int `yaml:"cutoff_window_min"`

	// TickSec — период оценки гейта (default: 60).
	TickSec int `yaml:"tick_sec"`
}

// CutoffWindow возвращает длительность cutoff-окна.
func (c TriggerConfig) CutoffWindow() time.Duration {
	return time.Duration(c.CutoffWindowMin) * time.Minute
}

// Tick возвращает период оценки гейта.
func (c TriggerConfig) Tick() time.Duration {
	if c.TickSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TickSec) * time.Second
}

// Load читает конфигурацию из файла и накладывает env-переопределения.
//
// Пустой path допустим: берётся REFRESHER_CONFIG, а при её отсутствии
// возвращается конфигурация из одних env-переопределений и дефолтов.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REFRESHER_CONFIG")
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv накладывает переопределения из окружения.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_URL"); v != "" {
		c.DB.URL = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.MQ.URL = v
	}
	if v := os.Getenv("REFRESHER_REGION"); v != "" {
		c.Run.Region = v
	}
	if v := os.Getenv("REFRESHER_REPORT_SOURCE"); v != "" {
		c.Run.ReportSource = v
	}
	if v := os.Getenv("REFRESHER_ENV"); v != "" {
		c.Notify.Env = v
	}
}

// Validate проверяет обязательные поля для запуска батча.
func (c *Config) Validate() error {
	if c.Run.Region == "" {
		return fmt.Errorf("run.region is required")
	}
	if c.Run.ReportSource == "" {
		return fmt.Errorf("run.report_source is required")
	}
	if c.Engine.ClusterIdentifier == "" {
		return fmt.Errorf("engine.cluster_identifier is required")
	}
	if c.Engine.Database == "" {
		return fmt.Errorf("engine.database is required")
	}
	if c.Engine.SecretARN == "" {
		return fmt.Errorf("engine.secret_arn is required")
	}
	return nil
}
