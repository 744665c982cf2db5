package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apisource "gopairs/adapters/api"
	"gopairs/adapters/excel"
	"gopairs/adapters/postgres"
	"gopairs/app"
	"gopairs/domain/pricetable"
	"gopairs/domain/screen"
	"gopairs/internal/config"
	"gopairs/internal/logging"
	"gopairs/internal/migration"
	"gopairs/ports"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cliEnv is the state shared by every subcommand after flags are parsed
type cliEnv struct {
	cfg    *config.Config
	logger *logrus.Logger

	workers     int
	policy      string
	indexColumn bool
	sheet       string
	save        bool
	logLevel    string
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	rootCmd := &cobra.Command{
		Use:   "gopairs",
		Short: "Screen a universe of price series for pairs-trading candidates",
		Long: `Screen aligned price series for candidate pairs.

SOURCE is a .csv or .xlsx file whose header row holds instrument ids, or an
http(s) URL serving {"instruments":[{"id":"A","values":[...]}]}.

Results are printed to stdout as JSON. Logs go to stderr.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVar(&env.workers, "workers", 0, "Pairs evaluated concurrently (0 = one per CPU)")
	flags.StringVar(&env.policy, "policy", "", "Per-pair failure policy: skip or abort")
	flags.BoolVar(&env.indexColumn, "index-column", false, "Drop the first column (dates) of the sheet")
	flags.StringVar(&env.sheet, "sheet", "", "XLSX sheet to read (default: first sheet)")
	flags.BoolVar(&env.save, "save", false, "Persist the run to the database named by DATABASE_URL")
	flags.StringVar(&env.logLevel, "log-level", "", "Log level override")

	rootCmd.AddCommand(
		newCointCmd(env),
		newDistanceCmd(env),
		newRunsCmd(env),
	)
	return rootCmd
}

func (e *cliEnv) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Screening.Workers = e.workers
	}
	if flags.Changed("policy") {
		cfg.Screening.Policy = e.policy
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = e.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if cfg.Logging.Output == "stdout" {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

func (e *cliEnv) service() *app.ScreeningService {
	return app.NewScreeningService(
		app.WithObserver(logging.NewScreenObserver(e.logger)),
		app.WithWorkers(e.cfg.Screening.Workers),
		app.WithPolicy(e.cfg.Screening.SkipPolicy()),
	)
}

func (e *cliEnv) source(location string) ports.TableSource {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return apisource.NewAPIReader(apisource.DefaultSource(location), e.logger)
	}
	return excel.NewDataReader(location, excel.ReaderConfig{Sheet: e.sheet, IndexColumn: e.indexColumn}, e.logger)
}

func (e *cliEnv) readTable(ctx context.Context, location string) (*pricetable.Table, error) {
	return e.source(location).ReadTable(ctx)
}

// repository opens the result store, creating its schema if needed
func (e *cliEnv) repository(ctx context.Context) (ports.ScreeningRepository, func(), error) {
	if !e.cfg.Database.Enabled() {
		return nil, nil, fmt.Errorf("DATABASE_URL is required to store or list runs")
	}
	db, err := postgres.Open(ctx, e.cfg.Database.URL, e.cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewScreeningRepository(db), func() { db.Close() }, nil
}

func newCointCmd(env *cliEnv) *cobra.Command {
	var intercept bool
	var sigLevel float64

	cmd := &cobra.Command{
		Use:   "coint SOURCE",
		Short: "List pairs whose cointegration p-value is below the significance level",
		Long: `Test every pair of instruments for cointegration.

With --intercept (the default) the first series is regressed on the second with
a constant and the residual is tested for a unit root. With --intercept=false
the Engle-Granger test runs on the raw pair.

Example: gopairs coint prices.csv --index-column --sig-level 0.05`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := env.cfg.Screening.CointegrationOptions()
			if cmd.Flags().Changed("intercept") {
				opts.Intercept = intercept
			}
			if cmd.Flags().Changed("sig-level") {
				opts.SigLevel = sigLevel
			}

			ctx := cmd.Context()
			table, err := env.readTable(ctx, args[0])
			if err != nil {
				return err
			}
			report, err := env.service().ScreenCointegration(ctx, table, opts)
			if err != nil {
				return err
			}
			if env.save {
				repo, closeDB, err := env.repository(ctx)
				if err != nil {
					return err
				}
				defer closeDB()
				if err := repo.SaveCointegration(ctx, report); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&intercept, "intercept", true, "Fit the cointegrating regression with a constant")
	cmd.Flags().Float64Var(&sigLevel, "sig-level", screen.DefaultSigLevel, "Strict upper bound on qualifying p-values")
	return cmd
}

func newDistanceCmd(env *cliEnv) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "distance SOURCE",
		Short: "List the N pairs with the smallest normalized distance",
		Long: `Rank every pair by the sum of squared differences between the z-scored
series and print the N closest, closest first.

Example: gopairs distance prices.xlsx --n 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := env.cfg.Screening.DistanceOptions()
			if cmd.Flags().Changed("n") {
				opts.N = n
			}

			ctx := cmd.Context()
			table, err := env.readTable(ctx, args[0])
			if err != nil {
				return err
			}
			report, err := env.service().ScreenDistance(ctx, table, opts)
			if err != nil {
				return err
			}
			if env.save {
				repo, closeDB, err := env.repository(ctx)
				if err != nil {
					return err
				}
				defer closeDB()
				if err := repo.SaveDistance(ctx, report); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().IntVar(&n, "n", screen.DefaultTopN, "Number of pairs to return")
	return cmd
}

func newRunsCmd(env *cliEnv) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored screening runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, closeDB, err := env.repository(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			runs, err := repo.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
