package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/internal/storage/memory"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/logging"
)

// app is the state shared by subcommands once the root has run.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.Config
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "settleup",
		Short:         "Group expense balances and settlement plans",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DataBackend = config.BackendSQLite
				cfg.DBPath = a.dbPath
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}

			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.Setup(level)

			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(serveCmd(a), balancesCmd(a), planCmd(a), tokenCmd(a))
	return root
}

// openStore opens the configured storage backend.
func (a *app) openStore() (storage.Store, error) {
	switch a.cfg.DataBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		store, err := sqlite.New(a.cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.DBPath, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", a.cfg.DataBackend)
	}
}
