package extraction

import (
	"encoding/json"
	"testing"
)

func TestParseCostReportPerFile(t *testing.T) {
	raw := json.RawMessage(`{"files":{
		"a.pdf":{"total_input_tokens":120,"total_output_tokens":40,"total_cost":0.0123,"model_name":"gemini-2.0-flash"},
		"b.pdf":{"input_tokens":80,"output_tokens":20,"cost":0.008}
	}}`)

	report, err := ParseCostReport(raw)
	if err != nil {
		t.Fatalf("ParseCostReport: %v", err)
	}
	if report == nil || report.PerFile == nil {
		t.Fatal("expected a per-file report")
	}
	if report.Totals != nil {
		t.Fatal("per-file report should not carry totals")
	}

	a := report.PerFile["a.pdf"]
	if a.InputTokens != 120 || a.OutputTokens != 40 || a.Cost != 0.0123 || a.ModelName != "gemini-2.0-flash" {
		t.Fatalf("a.pdf = %+v", a)
	}

	b := report.PerFile["b.pdf"]
	if b.InputTokens != 80 || b.OutputTokens != 20 || b.Cost != 0.008 {
		t.Fatalf("b.pdf = %+v (bare field names should be accepted)", b)
	}
}

func TestParseCostReportNestedTotals(t *testing.T) {
	raw := json.RawMessage(`{"llm_cost_analysis":{"total_input_tokens":500,"total_output_tokens":250,"total_cost":1.5,"model_name":"gemini-2.0-flash"}}`)

	report, err := ParseCostReport(raw)
	if err != nil {
		t.Fatalf("ParseCostReport: %v", err)
	}
	if report == nil || report.Totals == nil {
		t.Fatal("expected session totals")
	}
	if report.Totals.InputTokens != 500 || report.Totals.OutputTokens != 250 || report.Totals.Cost != 1.5 {
		t.Fatalf("totals = %+v", report.Totals)
	}
}

func TestParseCostReportFlatTotals(t *testing.T) {
	raw := json.RawMessage(`{"total_input_tokens":10,"total_output_tokens":5,"total_cost":0.002}`)

	report, err := ParseCostReport(raw)
	if err != nil {
		t.Fatalf("ParseCostReport: %v", err)
	}
	if report == nil || report.Totals == nil {
		t.Fatal("expected session totals")
	}
	if report.Totals.InputTokens != 10 || report.Totals.Cost != 0.002 {
		t.Fatalf("totals = %+v", report.Totals)
	}
}

func TestParseCostReportAbsent(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage("null")} {
		report, err := ParseCostReport(raw)
		if err != nil {
			t.Fatalf("ParseCostReport(%q): %v", raw, err)
		}
		if report != nil {
			t.Fatalf("ParseCostReport(%q) = %+v, want nil", raw, report)
		}
	}
}

func TestParseCostReportUnknownShape(t *testing.T) {
	if _, err := ParseCostReport(json.RawMessage(`{"pricing_v2":{"amount":3}}`)); err == nil {
		t.Fatal("expected an error for an unrecognized shape")
	}
	if _, err := ParseCostReport(json.RawMessage(`"not an object"`)); err == nil {
		t.Fatal("expected an error for a non-object payload")
	}
}
