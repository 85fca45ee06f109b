package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/medfocus/medgenie/internal/export"
	"github.com/medfocus/medgenie/internal/material"
)

var (
	exportOut             string
	exportInstitutionName string
)

var exportCmd = &cobra.Command{
	Use:   "export <institution-id> <subject> <year>",
	Short: "Export a study artifact as printable HTML",
	Long: `Export the study artifact for a selection as a
self-contained printable HTML document. The artifact is looked up
through the usual cache tiers and generated if missing.`,
	Args: cobra.ExactArgs(3),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(
		&exportOut, "out", "o", "",
		"Output file (default: stdout)",
	)
	exportCmd.Flags().StringVar(
		&exportInstitutionName, "institution-name", "",
		"Full institution name (defaults to the institution id)",
	)
}

func runExport(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", args[2], err)
	}

	key := material.MaterialKey{
		InstitutionID: args[0],
		SubjectName:   args[1],
		YearLevel:     year,
	}

	name := exportInstitutionName
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
	if err != nil {
		return err
	}

	html, err := export.RenderHTML(key, name, entry)
	if err != nil {
		return err
	}

	if exportOut == "" {
		fmt.Print(html)
		return nil
	}

	if err := os.WriteFile(exportOut, []byte(html), 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported to %s\n", exportOut)

	return nil
}
