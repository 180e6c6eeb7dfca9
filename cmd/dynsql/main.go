// dynsql parses, renders and runs dynamic SQL templates from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/canonical/dynsql"
	"github.com/canonical/dynsql/internal/config"
	"github.com/canonical/dynsql/internal/logger"
	"github.com/canonical/dynsql/internal/parse"
)

var (
	version   = "0.1.0"
	buildDate = "dev"
)

// app holds the state shared by all commands. It is filled in by the
// persistent pre-run of the root command.
type app struct {
	cfgFile  string
	logLevel string

	cfg *config.Config
	log *logger.Logger
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dynsql",
		Short: "dynsql - dynamic SQL templates",
		Long: `dynsql parses dynamic SQL templates, renders them with a set of
variables and runs the result against a database.

Render a template with variables from a YAML file:
  dynsql render --vars vars.yaml query.sql

Run a script against a SQLite database:
  dynsql exec --driver sqlite3 --dsn app.db --vars vars.yaml script.sql`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides the config file")

	rootCmd.AddCommand(
		newParseCmd(a),
		newSplitCmd(a),
		newRenderCmd(a),
		newExecCmd(a),
		newConfigCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "dynsql %s (built %s)\n", version, buildDate)
			},
		},
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return errors.Wrap(err, "cannot initialise logger")
	}
	a.cfg = cfg
	a.log = log.Named(cmd.Name())
	a.log.Debugw("configuration loaded",
		"config", a.cfgFile,
		"parser.level", cfg.Parser.Level,
		"database.driver", cfg.Database.Driver,
	)
	return nil
}

// options turns the parser configuration into dynsql options. level, when
// set, overrides the configured parse level.
func (a *app) options(level string) ([]dynsql.Option, error) {
	if level == "" {
		level = a.cfg.Parser.Level
	}
	l, err := parse.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := []dynsql.Option{
		dynsql.WithLevel(l),
		dynsql.WithMaxDepth(a.cfg.Parser.MaxDepth),
		dynsql.WithLogger(a.log.Zap()),
	}
	if a.cfg.Parser.Fallback {
		opts = append(opts, dynsql.WithFallback())
	}
	return opts, nil
}

// readInput returns the contents of the file named by args, or of stdin when
// there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, "cannot read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrapf(err, "cannot read %s", args[0])
	}
	return string(data), nil
}
