package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Refresher/internal/domain"
)

// WorklistRepo — репозиторий worklist-таблицы (список процедур на выполнение).
//
// Все запросы параметризованы: значения фильтров передаются только
// через bind-параметры.
type WorklistRepo struct {
	pool *pgxpool.Pool
}

// NewWorklistRepo создаёт новый WorklistRepo.
func NewWorklistRepo(pool *pgxpool.Pool) *WorklistRepo {
	return &WorklistRepo{pool: pool}
}

// WorklistFilter — параметры выборки worklist.
type WorklistFilter struct {
	// Region — регион run.
	Region string

	// DataSource — тег источника для LIKE-фильтра (например "BMT").
	DataSource string

	// Exclude инвертирует фильтр: выбрать всё, КРОМЕ DataSource.
	Exclude bool

	// Codebase — вариант worklist (пустая строка — без фильтра).
	Codebase string
}

// ListPending возвращает единицы работы по фильтру,
// упорядоченные по возрастанию exec_order.
func (r *WorklistRepo) ListPending(ctx context.Context, f WorklistFilter) ([]domain.WorkUnit, error) {
	matcher := `file_datasource LIKE '%' || $2 || '%'`
	if f.Exclude {
		matcher = `file_datasource NOT LIKE '%' || $2 || '%'`
	}

	query := `
		SELECT stored_procedure_name, file_datasource, exec_order
		FROM audit.refresh_worklist
		WHERE region = $1 AND ` + matcher + `
		  AND ($3::text = '' OR codebase = $3)
		ORDER BY exec_order ASC
	`
	rows, err := r.pool.Query(ctx, query, f.Region, f.DataSource, f.Codebase)
	if err != nil {
		return nil, fmt.Errorf("list worklist: %w", err)
	}
	defer rows.Close()

	var units []domain.WorkUnit
	for rows.Next() {
		var u domain.WorkUnit
		if err := rows.Scan(&u.Name, &u.DataSource, &u.ExecOrder); err != nil {
			return nil, fmt.Errorf("scan work unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// ListPriorityFiles возвращает имена priority-файлов,
// чью загрузку гейт обязан дождаться перед стартом run.
func (r *WorklistRepo) ListPriorityFiles(ctx context.Context, region, dataSource string) ([]string, error) {
	query := `
		SELECT file_name
		FROM audit.refresh_priority_files
		WHERE priority_flag = 'YES' AND region = $1 AND data_source = $2
		ORDER BY file_name
	`
	rows, err := r.pool.Query(ctx, query, region, dataSource)
	if err != nil {
		return nil, fmt.Errorf("list priority files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan priority file: %w", err)
		}
		files = append(files, name)
	}
	return files, rows.Err()
}
