package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Window — cutoff-окно запуска батча.
//
// Номинальное время старта задаётся cron-выражением в локальной таймзоне
// региона. Пока cutoff (номинальный старт плюс окно ожидания) не прошёл,
// гейт ждёт загрузки priority-файлов; после cutoff батч стартует
// с аннотацией Delay.
type Window struct {
	schedule cron.Schedule
	loc      *time.Location
	wait     time.Duration
}

// NewWindow создаёт cutoff-окно.
//
// expr — cron-выражение номинального старта (например "0 2 * * *"),
// timezone — таймзона региона, wait — длительность окна ожидания.
func NewWindow(expr, timezone string, wait time.Duration) (*Window, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	if wait < 0 {
		return nil, fmt.Errorf("negative cutoff window: %s", wait)
	}

	return &Window{
		schedule: schedule,
		loc:      loc,
		wait:     wait,
	}, nil
}

// CutoffFor возвращает момент cutoff для батча указанной даты:
// первый номинальный старт этих суток плюс окно ожидания.
func (w *Window) CutoffFor(batchDate time.Time) time.Time {
	y, m, d := batchDate.In(w.loc).Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, w.loc)

	nominal := w.schedule.Next(dayStart.Add(-time.Second))
	return nominal.Add(w.wait).UTC()
}

// Passed сообщает, прошёл ли cutoff батча на момент now.
func (w *Window) Passed(now, batchDate time.Time) bool {
	return now.After(w.CutoffFor(batchDate))
}
