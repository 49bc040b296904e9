// Package commands implements the accordion CLI.
package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/livetemplate/accordion/internal/config"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/store"
)

// Version is overridden at build time with -ldflags "-X ...commands.Version=..."
var Version = "0.1.0-dev"

// defaultTimeout bounds one-shot CLI store operations
const defaultTimeout = 30 * time.Second

// App holds the flags shared by every command
type App struct {
	ConfigPath string
	Dir        string
	LogLevel   string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "accordion",
		Short: "List-backed accordion widget",
		Long: `Serve an accordion widget whose panels are the rows of a named list,
with an edit mode for appending rows and a settings pane for choosing
or creating the list.

Lists live in the store configured in accordion.yaml (sqlite by default).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Initialize(app.LogLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "config file (default: <dir>/accordion.yaml)")
	root.PersistentFlags().StringVarP(&app.Dir, "dir", "d", ".", "directory holding accordion.yaml")
	root.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "log level: debug, info, warn, error (default: $ACCORDION_LOG_LEVEL or silent)")

	root.AddCommand(
		newServeCmd(app),
		newListsCmd(app),
		newProvisionCmd(app),
		newItemsCmd(app),
		newAddCmd(app),
		newVersionCmd(),
	)
	return root
}

// configFile returns the config path in effect
func (a *App) configFile() string {
	if a.ConfigPath != "" {
		return a.ConfigPath
	}
	return filepath.Join(a.Dir, config.FileName)
}

// loadConfig loads the config file, falling back to defaults when absent.
// A config log level applies when no flag or environment level was given.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if a.LogLevel == "" && cfg.Log.Level != "" {
		if err := logging.Initialize(cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openStore resolves relative sqlite paths against the config directory
func (a *App) openStore(cfg *config.Config) (store.Store, error) {
	sc := cfg.Store
	if sc.GetType() == "sqlite" && !filepath.IsAbs(sc.GetDB()) {
		sc.DB = filepath.Join(filepath.Dir(a.configFile()), sc.GetDB())
	}
	s, err := store.Open(sc)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", sc.GetType(), err)
	}
	return s, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "accordion version %s\n", Version)
		},
	}
}
