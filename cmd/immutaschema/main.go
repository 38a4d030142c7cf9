// Command immutaschema is the cobra-based CLI entrypoint (C14): it issues
// session commands against an in-process session.Session, replacing the
// teacher's flag-parsing wire-protocol server with a cobra root command.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasugasql/immutaschema/pkg/config"
	"github.com/kasugasql/immutaschema/pkg/session"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

const versionString = "immutaschema 0.1.0"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "immutaschema",
		Short: "Immutable-schema relational database engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON or TOML config file")
	root.AddCommand(newVersionCmd(), newServeCmd(), newExecCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return nil
		},
	}
}

func newExecCmd() *cobra.Command {
	var sql string
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run a single statement against a fresh session and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sql == "" {
				return fmt.Errorf("--sql is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withSession(cfg, func(s *session.Session) error {
				return runStatement(cmd, s, sql)
			})
		},
	}
	cmd.Flags().StringVar(&sql, "sql", "", "SQL statement to execute")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Read SQL statements from stdin, one per line, in one transaction committed at EOF",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ready on %s (%s); reading statements from stdin\n", cfg.Server.ListenAddr, cfg.Database.Driver)
			return withSession(cfg, func(s *session.Session) error {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					if err := runStatement(cmd, s, line); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}
				return scanner.Err()
			})
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.LoadConfigOrDefault(), nil
	}
	return config.LoadConfig(configPath)
}

// withSession opens a database, begins a transaction for fn, and commits on
// success or aborts on error, mirroring §4.9's one-transaction-per-unit-of-work
// usage of the session state machine.
func withSession(cfg *config.Config, fn func(s *session.Session) error) error {
	ctx := context.Background()
	s := session.New(nil, cfg.Session.TransactionTimeout)
	if err := s.UseDatabase(ctx, substrate.Driver(cfg.Database.Driver), cfg.Database.DSN); err != nil {
		return err
	}
	defer s.Close()

	if err := s.Begin(ctx); err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Abort()
		return err
	}
	return s.Commit()
}

func runStatement(cmd *cobra.Command, s *session.Session, sql string) error {
	result, err := s.Execute(context.Background(), sql)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d row(s)\n", len(result.Rows))
	return nil
}
