package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-insight/internal/config"
	"library-insight/internal/logging"
	"library-insight/library"
)

// app carries the state shared by every command of one process.
type app struct {
	cfgPath  string
	dbPath   string
	logLevel string
	output   string

	in  io.Reader
	out io.Writer

	cfg *config.Config
	log zerolog.Logger
	mgr *library.LibraryManager
}

func main() {
	a := &app{in: os.Stdin, out: os.Stdout}
	defer a.close()

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.close()
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return 3
	case errors.Is(err, library.ErrConflict):
		return 4
	case errors.Is(err, library.ErrValidation):
		return 5
	default:
		return 1
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library circulation, recommendations and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !validOutput(a.output) {
				return &library.ValidationError{Reason: fmt.Sprintf("unknown output format %q", a.output)}
			}
			return a.open()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	f := root.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "config file (default: library.yaml or $"+config.ConfigPathEnvVar+")")
	f.StringVar(&a.dbPath, "db", "", "SQLite database path, or :memory:")
	f.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	f.StringVarP(&a.output, "output", "o", cmp.Or(a.output, formatTable), "output format: table, json or yaml")

	root.AddCommand(
		newBookCmd(a),
		newUserCmd(a),
		newSearchCmd(a),
		newViewCmd(a),
		newReadCmd(a),
		newCheckoutCmd(a),
		newReturnCmd(a),
		newCancelCmd(a),
		newMarkOverdueCmd(a),
		newOverdueCmd(a),
		newBorrowingsCmd(a),
		newRecommendCmd(a),
		newSimilarCmd(a),
		newTrendingCmd(a),
		newAskCmd(a),
		newDashboardCmd(a),
		newTopCmd(a),
		newReportCmd(a),
		newReviewCmd(a),
		newNotifyCmd(a),
		newThemeCmd(a),
		newMetricsCmd(a),
		newShellCmd(a),
	)
	return root
}

// open loads configuration and opens the store once per process.
func (a *app) open() error {
	if a.mgr != nil {
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	mgr, err := library.NewLibraryManager(cfg.Database.Path, library.Options{
		LoanPeriod:        cfg.Circulation.LoanPeriod,
		DefaultCount:      cfg.Recommend.DefaultCount,
		SimilarCount:      cfg.Recommend.SimilarCount,
		TopRatedMinRating: cfg.Recommend.TopRatedMinScore,
		Logger:            &a.log,
	})
	if err != nil {
		return fmt.Errorf("open library %s: %w", cfg.Database.Path, err)
	}
	a.mgr = mgr
	a.log.Debug().Str("db", cfg.Database.Path).Msg("library opened")
	return nil
}

func (a *app) close() {
	if a.mgr == nil {
		return
	}
	if err := a.mgr.Close(); err != nil {
		a.log.Error().Err(err).Msg("close library")
	}
	a.mgr = nil
}
