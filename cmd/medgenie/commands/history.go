package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously generated materials",
	Long: `List materials saved in the shared store, most recently
accessed first. Requires remote store credentials.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(
		&historyLimit, "limit", 20,
		"Maximum number of entries to list",
	)
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := newLogger()
	svc, cleanup, err := buildService(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	items, err := svc.History(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("No materials in history.")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  %s / %s (%dº ano)  acessos=%d  %s\n",
			item.RecordID, item.InstitutionID,
			item.SubjectName, item.YearLevel,
			item.AccessCount,
			item.LastAccessedAt.Format("02/01/2006 15:04"),
		)
	}

	return nil
}
