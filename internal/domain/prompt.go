package domain

import (
	"fmt"
	"strings"
)

// MergeMode controls how caller-supplied instructions combine with the
// default user prompt body.
type MergeMode string

const (
	MergeAppend  MergeMode = "append"
	MergePrepend MergeMode = "prepend"
	MergeReplace MergeMode = "replace"
)

// ParseMergeMode validates a merge mode string. Empty input resolves to
// append.
func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeAppend:
		return MergeAppend, nil
	case MergePrepend:
		return MergePrepend, nil
	case MergeReplace:
		return MergeReplace, nil
	default:
		return "", fmt.Errorf("unknown merge mode %q", s)
	}
}

// PromptConfig controls how a Record is turned into a completion request.
// It is immutable once a batch starts; every record in the batch shares it.
type PromptConfig struct {
	SystemPrompt     string
	UserInstructions string
	MergeMode        MergeMode
	Temperature      float64
	MaxOutputTokens  int
}

// Normalize fills unset sampling parameters with the given defaults and
// resolves an empty merge mode to append.
func (c PromptConfig) Normalize(defaultTemperature float64, defaultMaxTokens int) PromptConfig {
	if c.MergeMode == "" {
		c.MergeMode = MergeAppend
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = defaultMaxTokens
	}
	return c
}
