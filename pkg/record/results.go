package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/omnidb-project/omnidb/pkg/engine"
)

// encodeResults serializes the per-statement results for the JSON column.
func encodeResults(rec Record) ([]byte, error) {
	results := rec.Results
	if results == nil {
		results = []engine.StatementResult{}
	}
	return json.Marshal(results)
}

// decodeResults restores per-statement results from the JSON column. The
// encoding must round-trip exactly, so numbers are decoded as json.Number
// and renormalized to the engine's scalar set instead of collapsing every
// number to float64.
func decodeResults(data []byte) ([]engine.StatementResult, error) {
	if len(data) == 0 {
		return []engine.StatementResult{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	results := make([]engine.StatementResult, 0)
	if err := dec.Decode(&results); err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].Columns == nil {
			results[i].Columns = []engine.Column{}
		}
		if results[i].Rows == nil {
			results[i].Rows = [][]any{}
		}
		for _, row := range results[i].Rows {
			for j, cell := range row {
				value, err := renormalize(cell)
				if err != nil {
					return nil, err
				}
				row[j] = value
			}
		}
	}
	return results, nil
}

func renormalize(cell any) (any, error) {
	num, ok := cell.(json.Number)
	if !ok {
		return cell, nil
	}
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, fmt.Errorf("decoding numeric cell %q: %w", num, err)
	}
	return f, nil
}
