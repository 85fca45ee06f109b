package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medfocus/medgenie/internal/export"
	"github.com/medfocus/medgenie/internal/material"
)

// MaterialArgs identifies one study artifact.
type MaterialArgs struct {
	// InstitutionID is the short institution identifier.
	InstitutionID string `json:"institution_id" jsonschema:"Short institution identifier, e.g. usp"`

	// InstitutionName is the full institution name used in prompts.
	InstitutionName string `json:"institution_name" jsonschema:"Full institution name"`

	// Subject is the free-text subject name.
	Subject string `json:"subject" jsonschema:"Subject name as displayed to the student"`

	// Year is the academic year, 1 through 6.
	Year int `json:"year" jsonschema:"Academic year, 1 through 6"`
}

func (a MaterialArgs) key() material.MaterialKey {
	return material.MaterialKey{
		InstitutionID: a.InstitutionID,
		SubjectName:   a.Subject,
		YearLevel:     a.Year,
	}
}

// GetStudyMaterialResult is the result of the get_study_material tool.
type GetStudyMaterialResult struct {
	Content  material.Content `json:"content"`
	Research string           `json:"research"`
	RecordID string           `json:"record_id,omitempty"`
	// ErrorKind is set instead of content when generation failed:
	// "quota_exceeded" (retry later) or "generation_failed" (retry
	// now is reasonable).
	ErrorKind string `json:"error_kind,omitempty"`
}

func (s *Server) handleGetStudyMaterial(ctx context.Context,
	req *mcp.CallToolRequest, args MaterialArgs) (
	*mcp.CallToolResult, GetStudyMaterialResult, error) {

	entry, err := s.svc.Lookup(
		ctx, args.key(), args.InstitutionName,
	)
	if err != nil {
		// Classified generation errors are tool results rather
		// than protocol errors, so the caller can decide whether
		// to retry.
		switch {
		case errors.Is(err, material.ErrQuotaExceeded):
			return nil, GetStudyMaterialResult{
				ErrorKind: "quota_exceeded",
			}, nil

		case errors.Is(err, material.ErrGenerationFailed):
			return nil, GetStudyMaterialResult{
				ErrorKind: "generation_failed",
			}, nil
		}

		return nil, GetStudyMaterialResult{}, err
	}

	result := GetStudyMaterialResult{
		Content:  entry.Content,
		Research: entry.Research,
		RecordID: entry.RecordID.UnwrapOr(""),
	}

	return nil, result, nil
}

// MaterialHistoryArgs are the arguments for the material_history tool.
type MaterialHistoryArgs struct {
	// Limit caps the number of returned entries.
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of entries to return,default=20"`
}

// HistoryEntry is one row of the history listing.
type HistoryEntry struct {
	RecordID        string `json:"record_id"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
	Subject         string `json:"subject"`
	Year            int    `json:"year"`
	AccessCount     int64  `json:"access_count"`
	LastAccessedAt  string `json:"last_accessed_at"`
}

// MaterialHistoryResult is the result of the material_history tool.
type MaterialHistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
}

func (s *Server) handleMaterialHistory(ctx context.Context,
	req *mcp.CallToolRequest, args MaterialHistoryArgs) (
	*mcp.CallToolResult, MaterialHistoryResult, error) {

	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}

	items, err := s.svc.History(ctx, limit)
	if err != nil {
		return nil, MaterialHistoryResult{}, err
	}

	result := MaterialHistoryResult{
		Entries: make([]HistoryEntry, 0, len(items)),
	}
	for _, item := range items {
		result.Entries = append(result.Entries, HistoryEntry{
			RecordID:        item.RecordID,
			InstitutionID:   item.InstitutionID,
			InstitutionName: item.InstitutionName,
			Subject:         item.SubjectName,
			Year:            item.YearLevel,
			AccessCount:     item.AccessCount,
			LastAccessedAt: item.LastAccessedAt.Format(
				"2006-01-02 15:04:05",
			),
		})
	}

	return nil, result, nil
}

// ExportMaterialResult is the result of the export_material tool.
type ExportMaterialResult struct {
	HTML string `json:"html"`
}

func (s *Server) handleExportMaterial(ctx context.Context,
	req *mcp.CallToolRequest, args MaterialArgs) (
	*mcp.CallToolResult, ExportMaterialResult, error) {

	entry, err := s.svc.Lookup(
		ctx, args.key(), args.InstitutionName,
	)
	if err != nil {
		return nil, ExportMaterialResult{}, err
	}

	html, err := export.RenderHTML(
		args.key(), args.InstitutionName, entry,
	)
	if err != nil {
		return nil, ExportMaterialResult{}, err
	}

	return nil, ExportMaterialResult{HTML: html}, nil
}
