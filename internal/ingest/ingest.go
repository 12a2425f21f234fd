// Package ingest converts uploaded tabular payloads into ordered records
// and merges generation results back into the original shape.
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

// Format tags the encoding of an uploaded payload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat resolves a declared format tag or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "."))) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// ValidationError names the first structurally invalid row or field in an
// upload. Row is 1-based and counts data rows, not the header.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("row %d, field %q: %s", e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// Parse decodes raw upload bytes into an ordered record sequence. Zero
// data rows is valid and yields an empty slice. The first structural
// problem is reported as a *ValidationError.
func Parse(data []byte, format Format) ([]domain.Record, error) {
	switch format {
	case FormatCSV:
		return parseCSV(data)
	case FormatJSON:
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func parseCSV(data []byte) ([]domain.Record, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid header: %v", err)}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := checkRequiredColumns(header); err != nil {
		return nil, err
	}

	var records []domain.Record
	for row := 1; ; row++ {
		values, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{Row: row, Reason: err.Error()}
		}
		fields := make([]domain.Field, len(header))
		for i, col := range header {
			fields[i] = domain.Field{Name: col, Value: values[i]}
		}
		rec := domain.Record{Fields: fields}
		if err := checkRequiredValues(rec, row); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// parseJSON accepts either an array of flat objects or a single object.
// Decoding walks the token stream so source key order survives into the
// record's field order.
func parseJSON(data []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid json: %v", err)}
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, &ValidationError{Reason: "expected a json object or array of objects"}
	}

	var records []domain.Record
	switch delim {
	case '{':
		rec, err := decodeObject(dec, 1)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	case '[':
		for row := 1; dec.More(); row++ {
			tok, err := dec.Token()
			if err != nil {
				return nil, &ValidationError{Row: row, Reason: fmt.Sprintf("invalid json: %v", err)}
			}
			if d, ok := tok.(json.Delim); !ok || d != '{' {
				return nil, &ValidationError{Row: row, Reason: "expected a json object"}
			}
			rec, err := decodeObject(dec, row)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	default:
		return nil, &ValidationError{Reason: "expected a json object or array of objects"}
	}

	for row, rec := range records {
		if err := checkRequiredFields(rec, row+1); err != nil {
			return nil, err
		}
		if err := checkRequiredValues(rec, row+1); err != nil {
			return nil, err
		}
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// decodeObject consumes one object's tokens, the opening brace already
// read. Values must be scalars; nested structures are rejected.
func decodeObject(dec *json.Decoder, row int) (domain.Record, error) {
	var rec domain.Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return rec, &ValidationError{Row: row, Reason: fmt.Sprintf("invalid json: %v", err)}
		}
		key := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return rec, &ValidationError{Row: row, Field: key, Reason: fmt.Sprintf("invalid json: %v", err)}
		}
		var value string
		switch v := valTok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = fmt.Sprintf("%t", v)
		case nil:
			value = ""
		case json.Delim:
			return rec, &ValidationError{Row: row, Field: key, Reason: "nested values are not supported"}
		default:
			return rec, &ValidationError{Row: row, Field: key, Reason: "unsupported value type"}
		}
		rec.Fields = append(rec.Fields, domain.Field{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return rec, &ValidationError{Row: row, Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	return rec, nil
}

func checkRequiredColumns(header []string) error {
	for _, req := range domain.RequiredFields {
		found := false
		for _, col := range header {
			if strings.EqualFold(col, req) {
				found = true
				break
			}
		}
		if !found {
			return &ValidationError{Field: req, Reason: "required column is missing"}
		}
	}
	return nil
}

func checkRequiredFields(rec domain.Record, row int) error {
	for _, req := range domain.RequiredFields {
		if _, ok := rec.Get(req); !ok {
			return &ValidationError{Row: row, Field: req, Reason: "required field is missing"}
		}
	}
	return nil
}

func checkRequiredValues(rec domain.Record, row int) error {
	for _, req := range domain.RequiredFields {
		if v, _ := rec.Get(req); strings.TrimSpace(v) == "" {
			return &ValidationError{Row: row, Field: req, Reason: "required field is empty"}
		}
	}
	return nil
}
