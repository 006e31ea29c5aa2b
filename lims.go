package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/alexedwards/scs/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/wansing/perspective-lims/config"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/logging"
	"github.com/wansing/perspective-lims/sqldb"
	"github.com/wansing/perspective-lims/sqldb/mysql"
	"github.com/wansing/perspective-lims/sqldb/sqlite3"
	"github.com/wansing/perspective-lims/workflow"
	"github.com/xo/dburl"
)

// portal types whose chain is extended by their preparation workflow
var prepTypes = []string{"AnalysisRequest", "Sample"}

var rootCmd = &cobra.Command{
	Use:           "lims",
	Short:         "A laboratory information management system",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "lims.ini", "read configuration from this ini `file`")
	rootCmd.PersistentFlags().String("db", "", "sql database url, see github.com/xo/dburl (overrides the config file)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides the config file)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags which have been set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {

	filename, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(filename)
	if err != nil {
		return nil, err
	}

	for name, field := range map[string]*string{
		"db":        &cfg.DB,
		"log-level": &cfg.LogLevel,
		"listen":    &cfg.Listen,
		"base":      &cfg.Base,
	} {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			*field = flag.Value.String()
		}
	}
	cfg.Base = config.NormalizeBase(cfg.Base)

	return cfg, nil
}

type site struct {
	sqlDB      *sql.DB
	core       *core.CoreDB
	dispatcher *workflow.Dispatcher
	logger     *slog.Logger
}

// openSite connects to the database and assembles the workflow tool and the dispatcher. The dispatcher metrics
// are registered with reg.
func openSite(cfg *config.Config, reg prometheus.Registerer) (*site, error) {

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	var logger = logging.New(level)

	dbURL, err := dburl.Parse(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}

	dialect, err := sqldb.DialectOf(dbURL.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		return nil, fmt.Errorf("could not open sql database: %w", err)
	}

	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("could not ping sql database: %w", err)
	}

	logger.Info("using database", "url", dbURL.Redacted())

	var sessionStore scs.Store
	switch dbURL.Driver {
	case "mysql":
		sessionStore, err = mysql.NewSessionStore(sqlDB)
	case "sqlite3":
		sessionStore, err = sqlite3.NewSessionStore(sqlDB)
	}
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	var c = &core.CoreDB{Logger: logger}
	sqldb.Assign(c, sqlDB, dialect)

	if c.Workflows, err = cfg.LoadWorkflows(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	c.Init(sessionStore, cfg.Base)

	var d = workflow.NewDispatcher(c, c, nil, logger)
	if d.Metrics, err = workflow.NewMetrics(reg); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if d.Translations, err = workflow.LoadTranslations(nil); err != nil {
		sqlDB.Close()
		return nil, err
	}

	var prep = workflow.NewPrepCompletion(c, workflow.WithPrepLogger(logger))
	if err := workflow.Register(c, d, prep, prepTypes...); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &site{
		sqlDB:      sqlDB,
		core:       c,
		dispatcher: d,
		logger:     logger,
	}, nil
}

func (s *site) Close() {
	s.logger.Info("closing database")
	s.sqlDB.Close()
}
