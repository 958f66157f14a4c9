package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/repo"
)

// StoreFn открывает audit-репозиторий по требованию команды.
// Возвращаемый cleanup закрывает пул соединений.
type StoreFn func(ctx context.Context) (*repo.AuditRepo, func(), error)

// NewRunsCmd создаёт группу команд для работы с runs audit-журнала.
func NewRunsCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage refresh runs",
	}

	cmd.AddCommand(
		newRunsListCmd(storeFn, outputFn),
		newRunsShowCmd(storeFn, outputFn),
		newRunsRerunCmd(storeFn, outputFn),
	)

	return cmd
}

func newRunsListCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent refresh runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			store, cleanup, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := store.ListRunLog(cmd.Context(), limit)
			if err != nil {
				return err
			}

			headers := []string{"REGION", "BATCH_DATE", "SOURCE", "STATUS", "STARTED", "FINISHED", "ERROR"}
			table := make([][]string, len(rows))
			for i, r := range rows {
				table[i] = []string{
					r.Region,
					r.BatchDate.Format(time.DateOnly),
					r.ReportSource,
					string(r.Status),
					formatTime(r.StartedAt),
					formatTime(r.FinishedAt),
					r.ErrorMessage,
				}
			}

			out.Print(headers, table, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")

	return cmd
}

func newRunsShowCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "show REGION SOURCE",
		Short: "Show a single run with its dashboard status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			batchDate, err := parseDate(date)
			if err != nil {
				return err
			}

			store, cleanup, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			row, err := store.GetRunLog(cmd.Context(), args[0], batchDate, args[1])
			if err != nil {
				return err
			}

			master, _, merr := store.GetMasterStatus(cmd.Context(), args[0], args[1])
			if merr != nil {
				// Dashboard-строки может не быть; это не ломает show.
				master = ""
			}

			out.Print(
				[]string{"REGION", "BATCH_DATE", "SOURCE", "STATUS", "DASHBOARD", "STARTED", "FINISHED", "ERROR"},
				[][]string{{
					row.Region,
					row.BatchDate.Format(time.DateOnly),
					row.ReportSource,
					string(row.Status),
					master,
					formatTime(row.StartedAt),
					formatTime(row.FinishedAt),
					row.ErrorMessage,
				}},
				row,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Batch date YYYY-MM-DD (default: today)")

	return cmd
}

func newRunsRerunCmd(storeFn StoreFn, outputFn func() *Output) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "rerun REGION SOURCE",
		Short: "Reset a run so the gate picks it up again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			batchDate, err := parseDate(date)
			if err != nil {
				return err
			}

			store, cleanup, err := storeFn(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			run := &domain.RunContext{
				Region:       args[0],
				BatchDate:    batchDate,
				ReportSource: args[1],
			}
			if err := store.ResetRunLog(cmd.Context(), run); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run reset to %q: %s", domain.StatusYetToStart, run.Key()))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Batch date YYYY-MM-DD (default: today)")

	return cmd
}

// parseDate разбирает дату батча; пустая строка — сегодня.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
