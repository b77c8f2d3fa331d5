package extraction

import (
	"encoding/json"
	"fmt"
)

// StatusPayload is the raw session status reported by the extraction service.
// Raw preserves the upstream body verbatim so callers can pass it through.
type StatusPayload struct {
	Status         string            `json:"status"`
	Files          map[string]string `json:"files"`
	FileSizes      map[string]int64  `json:"file_sizes"`
	CompletedCount int               `json:"completed_count"`
	TotalCount     int               `json:"total_count"`
	DownloadURL    string            `json:"download_url"`
	CostAnalysis   json.RawMessage   `json:"cost_analysis"`

	Raw json.RawMessage `json:"-"`
}

// CostTotals is session-level token/cost accounting.
type CostTotals struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	ModelName    string
}

// FileCost is per-file token/cost accounting.
type FileCost struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	ModelName    string
}

// CostReport is the parsed cost_analysis payload. Exactly one of PerFile or
// Totals is set; a nil report means upstream sent no cost data yet.
type CostReport struct {
	PerFile map[string]FileCost
	Totals  *CostTotals
}

// The service emits cost data in three shapes: a map of per-file entries
// under "files", totals nested under "llm_cost_analysis", or a flat totals
// object. Field names drifted across versions, so each numeric field accepts
// both the "total_"-prefixed and bare spellings.
type rawFileCost struct {
	TotalInputTokens  *float64 `json:"total_input_tokens"`
	InputTokens       *float64 `json:"input_tokens"`
	TotalOutputTokens *float64 `json:"total_output_tokens"`
	OutputTokens      *float64 `json:"output_tokens"`
	TotalCost         *float64 `json:"total_cost"`
	Cost              *float64 `json:"cost"`
	ModelName         string   `json:"model_name"`
}

type rawCostEnvelope struct {
	Files            map[string]rawFileCost `json:"files"`
	LLMCostAnalysis  json.RawMessage        `json:"llm_cost_analysis"`
	TotalInputTokens *float64               `json:"total_input_tokens"`
	TotalOutput      *float64               `json:"total_output_tokens"`
	TotalCost        *float64               `json:"total_cost"`
	ModelName        string                 `json:"model_name"`
}

// ParseCostReport decodes the polymorphic cost_analysis payload. It tries the
// per-file breakdown first, then totals nested under llm_cost_analysis, then
// a flat totals object. An unrecognized shape is reported as an error rather
// than silently treated as zero cost.
func ParseCostReport(raw json.RawMessage) (*CostReport, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var env rawCostEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse cost_analysis: %w", err)
	}

	if len(env.Files) > 0 {
		perFile := make(map[string]FileCost, len(env.Files))
		for name, rc := range env.Files {
			perFile[name] = FileCost{
				InputTokens:  pickTokens(rc.TotalInputTokens, rc.InputTokens),
				OutputTokens: pickTokens(rc.TotalOutputTokens, rc.OutputTokens),
				Cost:         pickFloat(rc.TotalCost, rc.Cost),
				ModelName:    rc.ModelName,
			}
		}
		return &CostReport{PerFile: perFile}, nil
	}

	if len(env.LLMCostAnalysis) > 0 && string(env.LLMCostAnalysis) != "null" {
		nested, err := ParseCostReport(env.LLMCostAnalysis)
		if err != nil {
			return nil, err
		}
		if nested != nil {
			return nested, nil
		}
	}

	if env.TotalInputTokens != nil || env.TotalOutput != nil || env.TotalCost != nil {
		return &CostReport{Totals: &CostTotals{
			InputTokens:  pickTokens(env.TotalInputTokens, nil),
			OutputTokens: pickTokens(env.TotalOutput, nil),
			Cost:         pickFloat(env.TotalCost, nil),
			ModelName:    env.ModelName,
		}}, nil
	}

	return nil, fmt.Errorf("parse cost_analysis: unrecognized shape: %s", truncate(raw, 120))
}

func pickTokens(primary, fallback *float64) int64 {
	v := pickFloat(primary, fallback)
	if v < 0 {
		return 0
	}
	return int64(v)
}

func pickFloat(primary, fallback *float64) float64 {
	if primary != nil {
		return *primary
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
