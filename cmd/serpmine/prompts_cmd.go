package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fentz26/serpmine/internal/logx"
	"github.com/fentz26/serpmine/internal/prompts"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage workflow prompt overrides",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow nodes and their effective prompts",
	RunE:  runPromptsList,
}

var promptsSetCmd = &cobra.Command{
	Use:   "set [node] [prompt...]",
	Short: "Override a node's prompt",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPromptsSet,
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset [node]",
	Short: "Remove a node's override, restoring its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsReset,
}

var promptsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the account's override set into the local store",
	RunE:  runPromptsPull,
}

func init() {
	promptsCmd.AddCommand(promptsListCmd, promptsSetCmd, promptsResetCmd, promptsPullCmd)
}

const remoteSyncTimeout = 10 * time.Second

func runPromptsList(cmd *cobra.Command, args []string) error {
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
		return err
	}
	resolver.Apply(overrides)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tSOURCE\tPROMPT")
	for _, node := range prompts.Nodes() {
		source := "default"
		if resolver.Overridden(node) {
			source = "override"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", node, source, resolver.Effective(node))
	}
	return w.Flush()
}

func runPromptsSet(cmd *cobra.Command, args []string) error {
	node := args[0]
	prompt := strings.Join(args[1:], " ")
	if !prompts.Known(node) {
		return fmt.Errorf("unknown node %q (known: %s)", node, strings.Join(prompts.Nodes(), ", "))
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.openStore(); err != nil {
		return err
	}

	override, err := e.store.SavePromptOverride(prompts.WorkflowID, node, prompt)
	if err != nil {
		return err
	}

	// Best effort remote mirror; the local override wins regardless.
	if e.auth.IsAuthenticated() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteSyncTimeout)
		defer cancel()
		if err := e.api.SaveOverride(ctx, *override); err != nil {
			logx.ErrorErr(logx.CatAPI, "remote override save failed", err)
		}
	}

	fmt.Printf("Override set for %s\n", node)
	return nil
}

func runPromptsReset(cmd *cobra.Command, args []string) error {
	node := args[0]
	if !prompts.Known(node) {
		return fmt.Errorf("unknown node %q", node)
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.openStore(); err != nil {
		return err
	}

	if err := e.store.DeletePromptOverride(prompts.WorkflowID, node); err != nil {
		return err
	}

	if e.auth.IsAuthenticated() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteSyncTimeout)
		defer cancel()
		if err := e.api.DeleteOverride(ctx, prompts.WorkflowID, node); err != nil {
			logx.ErrorErr(logx.CatAPI, "remote override delete failed", err)
		}
	}

	fmt.Printf("Override cleared for %s\n", node)
	return nil
}

func runPromptsPull(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.openStore(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteSyncTimeout)
	defer cancel()

	overrides, err := e.api.ListOverrides(ctx, prompts.WorkflowID)
	if err != nil {
		return err
	}

	for _, o := range overrides {
		if !prompts.Known(o.Node) {
			fmt.Printf("Skipping unknown node %q\n", o.Node)
			continue
		}
		if _, err := e.store.SavePromptOverride(o.WorkflowID, o.Node, o.Prompt); err != nil {
			return err
		}
	}
	fmt.Printf("Pulled %d override(s)\n", len(overrides))
	return nil
}
