// Package sanitize recovers a structured record from free-form model output.
package sanitize

import (
	"encoding/json"
	"strings"

	"resumelens/pkg/domain"
)

// FormatError reports that the model output could not be parsed into the
// declared schema. Raw carries the original completion text for server-side
// diagnostic logging only; it must never reach the client.
type FormatError struct {
	Raw string
	err error
}

func (e *FormatError) Error() string {
	if e.err != nil {
		return "model response is not valid JSON: " + e.err.Error()
	}
	return "model response contains no JSON object"
}

func (e *FormatError) Unwrap() error {
	return e.err
}

// Parse trims the raw completion, strips markdown code fences, slices the
// text to the outermost brace pair, and decodes it. Models are told to emit
// bare JSON but routinely wrap it in fences or prose anyway; slicing at the
// first '{' and last '}' discards that padding. No semantic validation is
// performed on the decoded fields.
func Parse(raw string) (domain.AnalysisResult, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.ReplaceAll(text, "```json", "")
		text = strings.ReplaceAll(text, "```", "")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return domain.AnalysisResult{}, &FormatError{Raw: raw}
	}
	text = text[start : end+1]

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return domain.AnalysisResult{}, &FormatError{Raw: raw, err: err}
	}
	return result, nil
}
