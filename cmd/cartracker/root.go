package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/maruel/cartracker/internal/storage"
)

// configEnv names the config file when --config isn't given.
const configEnv = "CARTRACKER_CONFIG"

// app holds what every subcommand needs once flags are parsed.
type app struct {
	out io.Writer

	configPath string
	dataDir    string
	storePath  string
	level      string

	cfg     *storage.Config
	tracker *storage.Tracker
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:   "cartracker",
		Short: "Keep track of a car collection",
		Long: `cartracker stores a collection of cars in a single JSON file.

Models are unique ignoring case. Searches match any part of the model name.
The same store can be served over HTTP with "cartracker serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(out)
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file (default $"+configEnv+")")
	pf.StringVar(&a.dataDir, "data-dir", "", "Data directory holding car.json")
	pf.StringVar(&a.storePath, "store", "", "Path of the JSON store, overrides --data-dir")
	pf.StringVar(&a.level, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newDeleteCmd(a),
		newEditCmd(a),
		newImportCmd(a),
		newSchemaCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version and exit",
			Args:  cobra.NoArgs,
			// No store needed.
			PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
			Run: func(cmd *cobra.Command, args []string) {
				printVersion(cmd.OutOrStdout())
			},
		},
	)
	return root
}

// init loads the configuration, sets up logging and opens the store.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogger(os.Stderr, cfg.LogLevel); err != nil {
		return err
	}
	a.cfg = cfg
	a.tracker = storage.NewTracker(cfg.Store())
	return nil
}

// configFile returns the --config flag, falling back to $CARTRACKER_CONFIG.
func (a *app) configFile() string {
	if a.configPath != "" {
		return a.configPath
	}
	return os.Getenv(configEnv)
}

// loadConfig reads the configuration file and applies explicit flags over it.
func (a *app) loadConfig(cmd *cobra.Command) (*storage.Config, error) {
	cfg, err := storage.LoadConfig(a.configFile())
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if flags.Changed("store") {
		cfg.StorePath = a.storePath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
