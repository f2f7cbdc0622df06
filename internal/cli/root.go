// Package cli implements the daybook command-line interface.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/sqlite"
	"github.com/mesh-intelligence/daybook/internal/storage"
	"github.com/mesh-intelligence/daybook/pkg/store"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	listID    string
}

// app holds the wired-up storage stack for the duration of one command.
type app struct {
	flags    rootFlags
	backend  *sqlite.Backend
	session  *storage.Session
	registry *store.Registry
	cacheDir string
	location *time.Location
}

// now returns the current instant in the configured timezone, so period
// bucketing follows the configuration rather than the process zone.
func (a *app) now() time.Time {
	if a.location != nil {
		return time.Now().In(a.location)
	}
	return time.Now()
}

// NewRootCmd creates the top-level "daybook" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "daybook",
		Short: "A personal life-organization tracker",
		Long: "Daybook tracks actions, habits, and habit activity over\n" +
			"day, week, month, and year periods.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version":
				return nil
			case "windows":
				// Needs the configured timezone, but no storage.
				return a.setupTimezone()
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().StringVar(&a.flags.listID, "list", "inbox", "action list to operate on")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newActionsCmd(a))
	root.AddCommand(newHabitsCmd(a))
	root.AddCommand(newWindowsCmd(a))
	root.AddCommand(newWatchCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// setup loads configuration and attaches the storage stack. A broken
// configuration is a deployment error: it aborts the command before
// any store is touched.
func (a *app) setup() error {
	cfg, err := loadConfig(a.flags.configDir, a.flags.dataDir)
	if err != nil {
		return err
	}
	if a.location, err = resolveLocation(cfg.Timezone); err != nil {
		return err
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return fmt.Errorf("attach backend: %w", err)
	}

	a.backend = backend
	a.cacheDir = cfg.CacheDir
	a.session = storage.NewSession(cfg.CacheDir)
	a.registry = store.NewRegistry(backend, a.session, store.WithCacheTTL(cfg.CacheTTL))
	return nil
}

// setupTimezone loads the configuration only far enough to resolve the
// period-bucketing timezone, leaving the storage stack unattached.
func (a *app) setupTimezone() error {
	cfg, err := loadConfig(a.flags.configDir, a.flags.dataDir)
	if err != nil {
		return err
	}
	a.location, err = resolveLocation(cfg.Timezone)
	return err
}

// teardown cleans up the stores and detaches the backend. Safe to call
// when setup never ran.
func (a *app) teardown() error {
	if a.registry != nil {
		a.registry.Cleanup()
	}
	if a.backend != nil {
		return a.backend.Detach()
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("daybook v0.1.0")
		},
	}
}
