package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate <record-id> <score>",
	Short: "Rate a saved material's quality (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE:  runRate,
}

func runRate(cmd *cobra.Command, args []string) error {
	score, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", args[1], err)
	}

	log := newLogger()
	svc, cleanup, err := buildService(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Rate(cmd.Context(), args[0], score); err != nil {
		return err
	}

	fmt.Println("Rating saved.")

	return nil
}
