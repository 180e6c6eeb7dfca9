package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/canonical/dynsql"
	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/config"
	"github.com/canonical/dynsql/internal/logger"
)

func newParseCmd(a *app) *cobra.Command {
	var level, format string
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse a template and print its statements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			opts, err := a.options(level)
			if err != nil {
				return err
			}
			stmts, err := dynsql.ParseAll(text, opts...)
			if err != nil {
				return err
			}
			a.log.Debugw("parsed", "statements", len(stmts))

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				for _, stmt := range stmts {
					fmt.Fprintf(out, "%s\t%s\n", stmt.Type, stmt)
				}
			case "tree":
				for _, stmt := range stmts {
					printTree(out, stmt, 0)
				}
			case "yaml":
				dumps := make([]nodeDump, len(stmts))
				for i, stmt := range stmts {
					dumps[i] = dumpNode(stmt)
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(dumps); err != nil {
					return errors.Wrap(err, "cannot encode statements")
				}
				return enc.Close()
			default:
				return errors.Newf("unknown format %q", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "parse level, base or more")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, tree or yaml")
	return cmd
}

func newSplitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "split [file|-]",
		Short: "Split a script into statements",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			opts, err := a.options("")
			if err != nil {
				return err
			}
			parts, err := dynsql.Split(text, opts...)
			if err != nil {
				return err
			}
			for _, part := range parts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", part)
			}
			return nil
		},
	}
}

func newRenderCmd(a *app) *cobra.Command {
	var varsFile string
	var dollar bool
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a template and print the SQL and its arguments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			vars, err := loadVars(varsFile)
			if err != nil {
				return err
			}
			opts, err := a.options("")
			if err != nil {
				return err
			}
			if dollar {
				opts = append(opts, dynsql.WithDollarPlaceholders())
			}
			stmt, err := dynsql.Prepare(text, opts...)
			if err != nil {
				return err
			}
			query, qargs, err := stmt.Render(vars)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, query)
			for i, arg := range qargs {
				fmt.Fprintf(out, "-- %d: %#v\n", i+1, arg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file holding the template variables")
	cmd.Flags().BoolVar(&dollar, "dollar", false, "bind arguments as $1, $2, ...")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	var driver, dsn, varsFile string
	cmd := &cobra.Command{
		Use:   "exec [file|-]",
		Short: "Run every statement of a script in one transaction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == "" {
				driver = a.cfg.Database.Driver
			}
			if dsn == "" {
				dsn = a.cfg.Database.DSN
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			vars, err := loadVars(varsFile)
			if err != nil {
				return err
			}
			opts, err := a.options("")
			if err != nil {
				return err
			}
			if driver == "postgres" {
				opts = append(opts, dynsql.WithDollarPlaceholders())
			}
			parts, err := dynsql.Split(text, opts...)
			if err != nil {
				return err
			}
			stmts := make([]*dynsql.Statement, len(parts))
			for i, part := range parts {
				if stmts[i], err = dynsql.Prepare(part, opts...); err != nil {
					return errors.Wrapf(err, "statement %d", i+1)
				}
			}

			sqldb, err := sql.Open(driver, dsn)
			if err != nil {
				return errors.Wrapf(err, "cannot open %s database", driver)
			}
			defer sqldb.Close()
			log := a.log.With("driver", driver)
			log.Infow("running script", "statements", len(stmts))
			return runScript(cmd.Context(), log, dynsql.NewDB(sqldb), stmts, vars, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "database driver: sqlite3, postgres or mysql")
	cmd.Flags().StringVar(&dsn, "dsn", "", "data source name")
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file holding the template variables")
	return cmd
}

func runScript(ctx context.Context, log *logger.Logger, db *dynsql.DB, stmts []*dynsql.Statement, vars dynsql.M, out io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := db.Begin(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "cannot begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warnw("rollback failed", "error", rbErr)
			}
		}
	}()

	for i, stmt := range stmts {
		q := tx.Query(ctx, stmt, vars)
		log.Debugw("running statement", "index", i+1, "sql", q.SQL(), "args", len(q.Args()))
		if stmt.AST().Type == ast.TypeSelect {
			var rows []dynsql.M
			if err := q.GetAll(&rows); err != nil {
				return errors.Wrapf(err, "statement %d", i+1)
			}
			for _, row := range rows {
				for k, v := range row {
					if b, ok := v.([]byte); ok {
						row[k] = string(b)
					}
				}
			}
			data, err := yaml.Marshal(rows)
			if err != nil {
				return errors.Wrap(err, "cannot encode rows")
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
			continue
		}
		res, err := q.Exec()
		if err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}
		if n, err := res.RowsAffected(); err == nil {
			log.Debugw("statement done", "index", i+1, "rows", n)
		}
	}
	return tx.Commit()
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "dynsql.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", path)
			return nil
		},
	})
	return cmd
}

// loadVars reads template variables from a YAML mapping. An empty path
// means no variables.
func loadVars(path string) (dynsql.M, error) {
	vars := dynsql.M{}
	if path == "" {
		return vars, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, errors.Wrapf(err, "cannot parse variables in %s", path)
	}
	return vars, nil
}
