// Package mcp exposes the screening service as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/service"
)

// Classifier is the service surface the tools depend on.
type Classifier interface {
	Screen(ctx context.Context, req service.ScreenRequest) (*domain.ScreeningRecord, error)
	Get(ctx context.Context, id string) (*domain.ScreeningRecord, error)
	History(ctx context.Context, userID string, limit, offset int) (*domain.HistoryPage, error)
	Rules() service.RuleSetDescription
}

// Exporter writes every stored screening as JSON.
type Exporter interface {
	ExportJSON(ctx context.Context, writer io.Writer) error
}

// ClassifySymptomsParams defines parameters for the classify_symptoms tool
type ClassifySymptomsParams struct {
	Symptoms         map[string]any `json:"symptoms" jsonschema:"self-reported symptom record keyed by field name such as cycle_gap_days or bmi"`
	UserID           string         `json:"user_id,omitempty" jsonschema:"optional user the screening belongs to"`
	IncludeNarrative bool           `json:"include_narrative,omitempty" jsonschema:"also return a plain-language explanation"`
}

// GetScreeningParams defines parameters for the get_screening tool
type GetScreeningParams struct {
	ID string `json:"id" jsonschema:"screening ID returned by classify_symptoms"`
}

// ListScreeningsParams defines parameters for the list_screenings tool
type ListScreeningsParams struct {
	UserID string `json:"user_id,omitempty" jsonschema:"only screenings of this user"`
	Limit  int    `json:"limit,omitempty" jsonschema:"page size (default 20 and at most 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of screenings to skip"`
}

// DescribeRulesParams defines parameters for the describe_rules tool
type DescribeRulesParams struct{}

// ExportScreeningsParams defines parameters for the export_screenings tool
type ExportScreeningsParams struct {
	Filename string `json:"filename,omitempty" jsonschema:"file name inside the export directory"`
}

// ScreeningResult is the tool view of a stored screening. Symptom values are
// not echoed back.
type ScreeningResult struct {
	ID                    string   `json:"id"`
	UserID                string   `json:"user_id,omitempty"`
	Phenotype             string   `json:"phenotype"`
	Confidence            float64  `json:"confidence"`
	Reasons               []string `json:"reasons"`
	DataQualityScore      int      `json:"data_quality_score"`
	RuleVersion           string   `json:"rule_version"`
	DifferentialDiagnosis string   `json:"differential_diagnosis,omitempty"`
	Branch                string   `json:"branch"`
	CriteriaMet           int      `json:"criteria_met"`
	Narrative             string   `json:"narrative,omitempty"`
	CreatedAt             string   `json:"created_at"`
}

// ListScreeningsResult defines the result of list_screenings
type ListScreeningsResult struct {
	Items  []ScreeningResult `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ExportScreeningsResult defines the result of export_screenings
type ExportScreeningsResult struct {
	Path string `json:"path"`
}

func toScreeningResult(rec *domain.ScreeningRecord) ScreeningResult {
	return ScreeningResult{
		ID:                    rec.ID,
		UserID:                rec.UserID,
		Phenotype:             rec.Result.Phenotype.String(),
		Confidence:            rec.Result.Confidence,
		Reasons:               append([]string{}, rec.Result.Reasons...),
		DataQualityScore:      rec.Result.DataQualityScore,
		RuleVersion:           rec.Result.RuleVersion,
		DifferentialDiagnosis: rec.Result.DifferentialDiagnosis,
		Branch:                rec.Result.Branch.String(),
		CriteriaMet:           rec.Result.CriteriaMet,
		Narrative:             rec.Narrative,
		CreatedAt:             rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Tools holds the tool handlers. Each handler returns its typed result as
// structured content next to a short text summary.
type Tools struct {
	classifier Classifier
	exporter   Exporter
	exportDir  string
	logger     *logrus.Logger
}

// NewTools creates the tool handlers. A nil exporter leaves export_screenings
// unregistered.
func NewTools(classifier Classifier, exporter Exporter, exportDir string, logger *logrus.Logger) *Tools {
	return &Tools{
		classifier: classifier,
		exporter:   exporter,
		exportDir:  exportDir,
		logger:     logger,
	}
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) int {
	mcp.AddTool(server, &mcp.Tool{
		Name: "classify_symptoms",
		Description: "Screen a self-reported symptom record for a PCOS pattern. Returns the phenotype, " +
			"a confidence score, the reasons and a data quality score. Educational guidance only, not a diagnosis.",
	}, t.handleClassifySymptoms)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_screening",
		Description: "Fetch a stored screening result by ID.",
	}, t.handleGetScreening)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_screenings",
		Description: "List stored screening results, newest first.",
	}, t.handleListScreenings)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_rules",
		Description: "Describe the frozen screening rule set: thresholds, red flags and the branch order.",
	}, t.handleDescribeRules)

	count := 4
	if t.exporter != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "export_screenings",
			Description: "Export every stored screening to a JSON file in the data directory.",
		}, t.handleExportScreenings)
		count++
	}

	t.logger.WithField("tool_count", count).Info("Successfully registered all tools")
	return count
}

func (t *Tools) handleClassifySymptoms(ctx context.Context, req *mcp.CallToolRequest, params ClassifySymptomsParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "classify_symptoms").Info("Tool invoked")

	if params.Symptoms == nil {
		return errorResult("Missing required parameter", fmt.Errorf("symptoms is required")), nil, nil
	}

	rec, err := t.classifier.Screen(ctx, service.ScreenRequest{
		Symptoms:         params.Symptoms,
		UserID:           params.UserID,
		IncludeNarrative: params.IncludeNarrative,
	})
	if err != nil {
		return errorResult("Screening failed", err), nil, nil
	}

	result := toScreeningResult(rec)
	return textResult(fmt.Sprintf("%s (confidence %.1f, data quality %d%%). %s",
		result.Phenotype, result.Confidence, result.DataQualityScore, domain.Disclaimer)), result, nil
}

func (t *Tools) handleGetScreening(ctx context.Context, req *mcp.CallToolRequest, params GetScreeningParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "get_screening").Info("Tool invoked")

	if params.ID == "" {
		return errorResult("Missing required parameter", fmt.Errorf("id is required")), nil, nil
	}

	rec, err := t.classifier.Get(ctx, params.ID)
	if err != nil {
		return errorResult("Screening lookup failed", err), nil, nil
	}

	result := toScreeningResult(rec)
	return textResult(fmt.Sprintf("Screening %s: %s (confidence %.1f)", result.ID, result.Phenotype, result.Confidence)), result, nil
}

func (t *Tools) handleListScreenings(ctx context.Context, req *mcp.CallToolRequest, params ListScreeningsParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "list_screenings").Info("Tool invoked")

	page, err := t.classifier.History(ctx, params.UserID, params.Limit, params.Offset)
	if err != nil {
		return errorResult("Listing screenings failed", err), nil, nil
	}

	result := ListScreeningsResult{
		Items:  make([]ScreeningResult, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, rec := range page.Items {
		result.Items = append(result.Items, toScreeningResult(rec))
	}

	return textResult(fmt.Sprintf("Found %d screenings (showing %d)", result.Total, len(result.Items))), result, nil
}

func (t *Tools) handleDescribeRules(ctx context.Context, req *mcp.CallToolRequest, params DescribeRulesParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "describe_rules").Info("Tool invoked")

	desc := t.classifier.Rules()
	return textResult(fmt.Sprintf("Rule set %s with %d branches", desc.RuleVersion, len(desc.Branches))), desc, nil
}

func (t *Tools) handleExportScreenings(ctx context.Context, req *mcp.CallToolRequest, params ExportScreeningsParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "export_screenings").Info("Tool invoked")

	name := params.Filename
	if name == "" {
		name = fmt.Sprintf("screenings-%s.json", time.Now().UTC().Format("20060102-150405"))
	}
	// Exports never leave the export directory
	if filepath.Base(name) != name || name == "." || name == ".." {
		return errorResult("Invalid parameter", fmt.Errorf("filename must not contain a path")), nil, nil
	}

	if err := os.MkdirAll(t.exportDir, 0755); err != nil {
		return errorResult("Export failed", err), nil, nil
	}
	path := filepath.Join(t.exportDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errorResult("Export failed", err), nil, nil
	}
	defer f.Close()

	if err := t.exporter.ExportJSON(ctx, f); err != nil {
		return errorResult("Export failed", err), nil, nil
	}

	return textResult("Exported screenings to " + path), ExportScreeningsResult{Path: path}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errorResult creates a standardized error result for tool calls
func errorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - [%s] %v", domain.ErrorCode(err), err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
