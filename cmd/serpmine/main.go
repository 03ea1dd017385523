package main

import (
	"fmt"
	"os"

	"github.com/fentz26/serpmine/internal/auth"
	"github.com/fentz26/serpmine/internal/config"
	"github.com/fentz26/serpmine/internal/logx"
	"github.com/fentz26/serpmine/internal/seoapi"
	"github.com/fentz26/serpmine/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "serpmine",
	Short: "serpmine - terminal SEO keyword research workbench",
	Long:  `serpmine runs keyword mining, batch translation analysis, deep-dive reports and article drafts as switchable tasks inside one terminal session.`,
	RunE:  runTUI, // bare "serpmine" opens the workbench
}

var (
	debugFlag bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Write debug logs to the config directory")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// env holds the wired collaborators shared by the subcommands. Not every
// command needs all of them; openStore is called only where persistence
// is touched.
type env struct {
	cfg     *config.Config
	auth    *auth.Manager
	api     *seoapi.Client
	store   *store.Store
	cleanup []func()
}

// newEnv loads configuration and wires the auth manager and API client.
func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	closeLog, err := logx.Init(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logx.SetEnabled(debugFlag || cfg.Debug)

	authMgr, err := auth.NewManager(cfg.AuthRefreshURL)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init auth: %w", err)
	}

	e := &env{
		cfg:  cfg,
		auth: authMgr,
		api:  seoapi.NewClient(cfg.APIBaseURL, authMgr),
	}
	e.cleanup = append(e.cleanup, closeLog)
	return e, nil
}

// openStore opens the sqlite workspace database.
func (e *env) openStore() error {
	s, err := store.New(e.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	e.store = s
	e.cleanup = append(e.cleanup, func() { _ = s.Close() })
	return nil
}

// close runs the accumulated cleanup in reverse order.
func (e *env) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
