package comparator

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Highlight is a matched term with the excerpt it was found in.
type Highlight struct {
	Term    string `json:"term"`
	Context string `json:"context"`
}

type Highlights struct {
	JDMatches     []Highlight `json:"jdMatches,omitempty"`
	ResumeMatches []Highlight `json:"resumeMatches,omitempty"`
}

// Result is the comparison API answer. The shape is trusted as received;
// Raw keeps the original body including fields unknown to this client.
type Result struct {
	MatchPercent  int         `json:"matchPercent"`
	MatchedSkills []string    `json:"matchedSkills"`
	MissingSkills []string    `json:"missingSkills"`
	Warnings      []string    `json:"warnings,omitempty"`
	Highlights    *Highlights `json:"highlights,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// HasWarnings reports whether the optional warnings list is present and non-empty.
func (r *Result) HasWarnings() bool {
	return r != nil && len(r.Warnings) > 0
}

// HasHighlights reports whether at least one highlight group has entries.
func (r *Result) HasHighlights() bool {
	if r == nil || r.Highlights == nil {
		return false
	}
	return len(r.Highlights.JDMatches) > 0 || len(r.Highlights.ResumeMatches) > 0
}

// resultBody is what mapstructure decodes into. Result.Raw is kept out of it
// because mapstructure ignores the "-" name that encoding/json skips.
type resultBody struct {
	MatchPercent  int         `json:"matchPercent"`
	MatchedSkills []string    `json:"matchedSkills"`
	MissingSkills []string    `json:"missingSkills"`
	Warnings      []string    `json:"warnings"`
	Highlights    *Highlights `json:"highlights"`
}

func decodeResult(data []byte) (*Result, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding compare response: %w", err)
	}

	var body resultBody
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &body,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding compare response: %w", err)
	}

	return &Result{
		MatchPercent:  body.MatchPercent,
		MatchedSkills: body.MatchedSkills,
		MissingSkills: body.MissingSkills,
		Warnings:      body.Warnings,
		Highlights:    body.Highlights,
		Raw:           append(json.RawMessage(nil), data...),
	}, nil
}
