// Package readiness проверяет готовность priority-файлов перед стартом run.
//
// Файл считается загруженным, когда он дошёл до archive-префикса
// объектного хранилища; присутствие только в landing-префиксе означает
// "получен, но ещё не загружен в хранилище данных".
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FileState — состояние priority-файла.
type FileState string

// Состояния файлов.
const (
	// StateMissing — файл ещё не появился даже в landing.
	StateMissing FileState = "missing"

	// StateReceived — файл получен (лежит в landing), но не загружен.
	StateReceived FileState = "received"

	// StateLoaded — файл загружен (перемещён в archive).
	StateLoaded FileState = "loaded"
)

// ObjectLister — листинг объектов хранилища по префиксу.
type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Report — результат проверки готовности.
type Report struct {
	states map[string]FileState
}

// State возвращает состояние файла.
func (r *Report) State(file string) FileState {
	if s, ok := r.states[file]; ok {
		return s
	}
	return StateMissing
}

// AllLoaded сообщает, загружены ли все проверенные файлы.
func (r *Report) AllLoaded() bool {
	for _, s := range r.states {
		if s != StateLoaded {
			return false
		}
	}
	return true
}

// Pending возвращает отсортированный список незагруженных файлов.
func (r *Report) Pending() []string {
	var out []string
	for file, s := range r.states {
		if s != StateLoaded {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out
}

// Checker — проверка готовности priority-файлов по двум префиксам.
type Checker struct {
	lister        ObjectLister
	landingPrefix string
	archivePrefix string
	logger        *slog.Logger
}

// Config — конфигурация Checker.
type Config struct {
	// Lister — листинг объектного хранилища.
	Lister ObjectLister

	// LandingPrefix — префикс входящих файлов.
	LandingPrefix string

	// ArchivePrefix — префикс загруженных файлов.
	ArchivePrefix string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Checker.
func New(cfg Config) *Checker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		lister:        cfg.Lister,
		landingPrefix: cfg.LandingPrefix,
		archivePrefix: cfg.ArchivePrefix,
		logger:        logger,
	}
}

// Check определяет состояние каждого файла из списка.
//
// Листинг выполняется по одному разу на префикс; сопоставление
// по имени файла — по суффиксу ключа объекта.
func (c *Checker) Check(ctx context.Context, files []string) (*Report, error) {
	report := &Report{states: make(map[string]FileState, len(files))}
	if len(files) == 0 {
		return report, nil
	}

	archived, err := c.lister.List(ctx, c.archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("list archive objects: %w", err)
	}

	landed, err := c.lister.List(ctx, c.landingPrefix)
	if err != nil {
		return nil, fmt.Errorf("list landing objects: %w", err)
	}

	for _, file := range files {
		switch {
		case containsFile(archived, file):
			report.states[file] = StateLoaded
		case containsFile(landed, file):
			report.states[file] = StateReceived
		default:
			report.states[file] = StateMissing
		}
	}

	if !report.AllLoaded() {
		c.logger.Info("priority files not yet loaded", "pending", report.Pending())
	}

	return report, nil
}

// containsFile ищет файл среди ключей объектов по базовому имени.
// Ключи в хранилище несут префикс пути, имена в worklist — нет.
func containsFile(keys []string, file string) bool {
	for _, key := range keys {
		if key == file || strings.HasSuffix(key, "/"+file) {
			return true
		}
	}
	return false
}
