package domain

import "strings"

// Field is a single named value within a Record. Fields keep their source
// order so results can be merged back into the original column layout.
type Field struct {
	Name  string
	Value string
}

// Record is one yacht row to be described. Identity is positional: a record
// is addressed by its index in the submitted batch, never by a semantic key.
type Record struct {
	Fields []Field
}

// RequiredFields must be present (non-empty) on every record before a batch
// is accepted. The remaining descriptive fields default to "N/A" in prompts.
var RequiredFields = []string{"name"}

// PromptFields is the fixed interpolation order used when building the user
// prompt for a record.
var PromptFields = []string{
	"name", "builder", "model", "year", "length",
	"guests", "cabins", "crew", "price", "watertoys", "location",
}

// Get returns the value for a field name, matched case-insensitively.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// GetOr returns the field value, or fallback when absent or blank.
func (r Record) GetOr(name, fallback string) string {
	if v, ok := r.Get(name); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// Columns returns the field names in source order.
func (r Record) Columns() []string {
	cols := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Clone returns a deep copy so snapshots never alias the stored record.
func (r Record) Clone() Record {
	fields := make([]Field, len(r.Fields))
	copy(fields, r.Fields)
	return Record{Fields: fields}
}
