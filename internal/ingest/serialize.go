package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
)

// DescriptionColumn is the output column carrying generated text.
const DescriptionColumn = "description"

// outcomeValue renders an outcome as a cell value. Failed records carry an
// ERROR: prefix in the description column instead of breaking the table.
func outcomeValue(o domain.Outcome) string {
	if o.OK() {
		return o.Text
	}
	return fmt.Sprintf("ERROR: %s", o.Message)
}

// MergeCSV writes the enriched table: every original column in source
// order, plus the description column. len(outcomes) must equal
// len(records).
func MergeCSV(w io.Writer, records []domain.Record, outcomes []domain.Outcome) error {
	if len(records) != len(outcomes) {
		return fmt.Errorf("records/outcomes length mismatch: %d vs %d", len(records), len(outcomes))
	}
	if len(records) == 0 {
		return nil
	}

	columns := mergedColumns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			if strings.EqualFold(col, DescriptionColumn) {
				row[j] = outcomeValue(outcomes[i])
				continue
			}
			row[j], _ = rec.Get(col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MergeJSON renders the enriched table as a JSON array, preserving each
// record's source field order.
func MergeJSON(records []domain.Record, outcomes []domain.Outcome) ([]byte, error) {
	if len(records) != len(outcomes) {
		return nil, fmt.Errorf("records/outcomes length mismatch: %d vs %d", len(records), len(outcomes))
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONRow(&buf, rec, outcomes[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeJSONRow(buf *bytes.Buffer, rec domain.Record, outcome domain.Outcome) error {
	buf.WriteByte('{')
	wroteDescription := false
	for i, f := range rec.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		value := f.Value
		if strings.EqualFold(f.Name, DescriptionColumn) {
			value = outcomeValue(outcome)
			wroteDescription = true
		}
		if err := writeJSONPair(buf, f.Name, value); err != nil {
			return err
		}
	}
	if !wroteDescription {
		if len(rec.Fields) > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONPair(buf, DescriptionColumn, outcomeValue(outcome)); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONPair(buf *bytes.Buffer, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// mergedColumns returns the union of all record columns in first-seen
// order, with the description column appended when absent.
func mergedColumns(records []domain.Record) []string {
	var columns []string
	seen := map[string]bool{}
	for _, rec := range records {
		for _, f := range rec.Fields {
			key := strings.ToLower(f.Name)
			if !seen[key] {
				seen[key] = true
				columns = append(columns, f.Name)
			}
		}
	}
	if !seen[DescriptionColumn] {
		columns = append(columns, DescriptionColumn)
	}
	return columns
}
