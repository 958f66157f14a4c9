// Refresher CLI — инструмент командной строки для работы
// с audit-журналом refresh-батчей.
//
// Использование:
//
//	refresher [--db DSN] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	runs  Просмотр и перезапуск runs
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Refresher/internal/cli"
	"github.com/shaiso/Refresher/internal/repo"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var dbURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "refresher",
		Short:         "Refresher CLI — report refresh audit tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Audit database DSN (default: DB_URL env)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	storeFn := func(ctx context.Context) (*repo.AuditRepo, func(), error) {
		pool, err := repo.NewPool(ctx, dbURL)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewAuditRepo(pool), pool.Close, nil
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunsCmd(storeFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
