package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse archived session results",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives",
	RunE:  runArchiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show [archive-id]",
	Short: "Show an archive's payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete [archive-id]",
	Short: "Delete an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveDelete,
}

var archiveTypeFilter string

func init() {
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd, archiveDeleteCmd)
	archiveListCmd.Flags().StringVar(&archiveTypeFilter, "type", "", "Filter by task type (mining, batch-translation, deep-dive, article-generation)")
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.openStore(); err != nil {
		return err
	}

	archives, err := e.store.ListArchives(archiveTypeFilter)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		fmt.Println("No archives found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tARCHIVED")
	for _, a := range archives {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.ID, a.Name, a.TaskType, a.ArchivedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.openStore(); err != nil {
		return err
	}

	archive, err := e.store.GetArchive(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", archive.ID)
	fmt.Printf("Name:     %s\n", archive.Name)
	fmt.Printf("Type:     %s\n", archive.TaskType)
	fmt.Printf("Archived: %s\n", archive.ArchivedAt.Local().Format(time.RFC1123))
	fmt.Println()
	fmt.Println(archive.Payload)
	return nil
}

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.openStore(); err != nil {
		return err
	}

	if err := e.store.DeleteArchive(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted archive %s\n", args[0])
	return nil
}
