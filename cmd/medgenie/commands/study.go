package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/medfocus/medgenie/internal/material"
)

var (
	// institutionName is the full institution name for prompts.
	institutionName string
)

var studyCmd = &cobra.Command{
	Use:   "study <institution-id> <subject> <year>",
	Short: "Get the study artifact for a subject",
	Long: `Get the study artifact for a (institution, subject, year)
selection. The artifact is served from the local cache when fresh,
from the shared store when available, and generated otherwise.`,
	Args: cobra.ExactArgs(3),
	RunE: runStudy,
}

func init() {
	studyCmd.Flags().StringVar(
		&institutionName, "institution-name", "",
		"Full institution name (defaults to the institution id)",
	)
}

func runStudy(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", args[2], err)
	}

	key := material.MaterialKey{
		InstitutionID: args[0],
		SubjectName:   args[1],
		YearLevel:     year,
	}

	name := institutionName
	if name == "" {
		name = key.InstitutionID
	}

	log := newLogger()
	svc, cleanup, err := buildService(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	entry, err := svc.Lookup(cmd.Context(), key, name)
	switch {
	case errors.Is(err, material.ErrQuotaExceeded):
		return fmt.Errorf("generation quota reached — try again " +
			"in a few minutes; nothing was lost")

	case errors.Is(err, material.ErrGenerationFailed):
		return fmt.Errorf("generation failed — retrying now is " +
			"safe: %w", err)

	case err != nil:
		return err
	}

	if outputFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(entry)
	}

	printEntry(key, entry)

	return nil
}

// printEntry renders the artifact as readable terminal text.
func printEntry(key material.MaterialKey, entry *material.CachedEntry) {
	fmt.Printf("# %s (%dº ano)\n\n",
		material.NormalizeSubject(key.SubjectName), key.YearLevel)
	fmt.Println(entry.Content.Summary)

	fmt.Println("\n## Pontos Chave")
	for _, p := range entry.Content.KeyPoints {
		fmt.Printf("  - %s\n", p)
	}

	if len(entry.Content.Flashcards) > 0 {
		fmt.Println("\n## Flashcards")
		for _, c := range entry.Content.Flashcards {
			fmt.Printf("  Q: %s\n  A: %s\n", c.Front, c.Back)
		}
	}

	if len(entry.Content.Quiz) > 0 {
		fmt.Println("\n## Quiz")
		for i, q := range entry.Content.Quiz {
			fmt.Printf("  %d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				fmt.Printf("     %c) %s\n", 'A'+j, opt)
			}
			fmt.Printf("     Gabarito: %c — %s\n",
				'A'+q.CorrectIndex, q.Explanation)
		}
	}

	if len(entry.Content.References) > 0 {
		fmt.Println("\n## Referências")
		for _, r := range entry.Content.References {
			fmt.Printf("  - %s — %s\n", r.Title, r.Author)
		}
	}

	fmt.Println("\n## Pesquisa Global")
	fmt.Println(entry.Research)

	fmt.Printf("\nGerado em %s",
		entry.CreatedAt.Format("02/01/2006 15:04"))
	entry.RecordID.WhenSome(func(id string) {
		fmt.Printf("  [registro %s]", id)
	})
	fmt.Println()
}
