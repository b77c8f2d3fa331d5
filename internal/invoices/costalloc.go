package invoices

import "math"

// FileShare is one file's slice of the session totals.
type FileShare struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

// SessionTotals is session-level accounting used when upstream reports no
// per-file breakdown.
type SessionTotals struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

// Distribute splits session totals across files proportionally to reported
// byte size. Files with an unknown or non-positive size weigh 1 so they still
// receive a share. Rounding makes the per-file sums drift from the session
// totals by at most a few units; that drift is expected and not corrected.
func Distribute(totals SessionTotals, fileSizes map[string]int64, fileNames []string) map[string]FileShare {
	weights := make(map[string]float64, len(fileNames))
	var sum float64
	for _, name := range fileNames {
		w := float64(fileSizes[name])
		if w <= 0 {
			w = 1
		}
		weights[name] = w
		sum += w
	}
	if sum <= 0 {
		sum = float64(len(fileNames))
		if sum == 0 {
			sum = 1
		}
	}

	result := make(map[string]FileShare, len(fileNames))
	for _, name := range fileNames {
		ratio := weights[name] / sum
		result[name] = FileShare{
			InputTokens:  int64(math.Round(float64(totals.InputTokens) * ratio)),
			OutputTokens: int64(math.Round(float64(totals.OutputTokens) * ratio)),
			Cost:         roundCost(totals.Cost * ratio),
		}
	}
	return result
}

// roundCost keeps six decimal places, enough for per-token pricing.
func roundCost(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
