package main

import (
	"fmt"
	"time"

	"github.com/fentz26/serpmine/internal/driver"
	"github.com/fentz26/serpmine/internal/logx"
	"github.com/fentz26/serpmine/internal/prompts"
	"github.com/fentz26/serpmine/internal/session"
	"github.com/fentz26/serpmine/internal/store"
	"github.com/fentz26/serpmine/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive workbench",
	RunE:  runTUI,
}

// saveDebounce batches rapid registry mutations into one workspace write.
const saveDebounce = 2 * time.Second

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.openStore(); err != nil {
		return err
	}

	resolver := prompts.NewResolver()
	overrides, err := e.store.ListPromptOverrides(prompts.WorkflowID)
	if err != nil {
		logx.ErrorErr(logx.CatStore, "load prompt overrides failed", err)
	} else {
		resolver.Apply(overrides)
	}
	e.api.SetPromptSource(resolver)

	var saver *store.Saver
	registry := session.NewRegistry(session.WithChangeHook(func(session.ChangeKind) {
		if saver != nil {
			saver.Request()
		}
	}))
	saver = store.NewSaver(e.store, func() *store.Workspace {
		return &store.Workspace{
			Tasks:        registry.Tasks(),
			ActiveTaskID: registry.ActiveID(),
			SavedAt:      time.Now(),
		}
	}, saveDebounce)

	if ws, err := e.store.LoadWorkspace(); err != nil {
		logx.ErrorErr(logx.CatStore, "workspace load failed", err)
	} else if ws != nil {
		registry.Restore(ws.Tasks, ws.ActiveTaskID)
	}

	drivers := driver.NewManager(registry, driver.Services{
		Generator: e.api,
		Analyzer:  e.api,
		Batch:     e.api,
		DeepDive:  e.api,
		Article:   e.api,
		Credits:   e.api,
	}, driverConfig(e))

	app := tui.New(tui.Deps{
		Registry:        registry,
		Drivers:         drivers,
		Store:           e.store,
		Prompts:         resolver,
		API:             e.api,
		Auth:            e.auth,
		DefaultLanguage: e.cfg.TargetLanguage,
	})

	runErr := app.Run()

	drivers.StopAll()
	saver.Close()
	if runErr != nil {
		return fmt.Errorf("workbench: %w", runErr)
	}
	return nil
}

// driverConfig maps configuration onto driver tuning.
func driverConfig(e *env) driver.Config {
	cfg := driver.DefaultConfig()
	if e.cfg.MaxRounds > 0 {
		cfg.MaxRounds = e.cfg.MaxRounds
	}
	if e.cfg.CandidatesPerRound > 0 {
		cfg.CandidatesPerRound = e.cfg.CandidatesPerRound
	}
	cfg.Costs = driver.Costs{
		MiningUnit:  e.cfg.MiningUnitCost,
		BatchUnit:   e.cfg.BatchUnitCost,
		DeepDive:    e.cfg.DeepDiveCost,
		ArticleUnit: e.cfg.ArticleUnitCost,
	}
	return cfg
}
