package results

import (
	"encoding/json"

	"github.com/tidwall/pretty"

	"github.com/spigell/jd-comparator/internal/comparator"
)

const (
	placeholderMatched = "No matched skills found"
	placeholderMissing = "No missing skills - Perfect match!"
)

// ScoreTier is the color band of a match percentage.
type ScoreTier struct {
	Name  string
	Color string
}

var (
	TierExcellent = ScoreTier{Name: "excellent", Color: "#10b981"}
	TierGood      = ScoreTier{Name: "good", Color: "#f59e0b"}
	TierFair      = ScoreTier{Name: "fair", Color: "#f97316"}
	TierPoor      = ScoreTier{Name: "poor", Color: "#ef4444"}
)

// Tier maps a percentage onto four bands: 80+, 60+, 40+ and the rest.
func Tier(percent int) ScoreTier {
	switch {
	case percent >= 80:
		return TierExcellent
	case percent >= 60:
		return TierGood
	case percent >= 40:
		return TierFair
	default:
		return TierPoor
	}
}

// SkillSection is a titled skill list; Placeholder is set only when it is empty.
type SkillSection struct {
	Title       string
	Skills      []string
	Placeholder string
}

type HighlightGroup struct {
	Title string
	Items []comparator.Highlight
}

// View is a render-ready form of a comparison result.
type View struct {
	Percent    int
	Tier       ScoreTier
	Matched    SkillSection
	Missing    SkillSection
	Warnings   []string
	Highlights []HighlightGroup
	CanExport  bool
}

func NewView(r *comparator.Result) *View {
	v := &View{
		Percent:   r.MatchPercent,
		Tier:      Tier(r.MatchPercent),
		Matched:   section("Matched Skills", r.MatchedSkills, placeholderMatched),
		Missing:   section("Missing Skills", r.MissingSkills, placeholderMissing),
		CanExport: len(r.MissingSkills) > 0,
	}

	if r.HasWarnings() {
		v.Warnings = r.Warnings
	}

	if r.HasHighlights() {
		if items := r.Highlights.JDMatches; len(items) > 0 {
			v.Highlights = append(v.Highlights, HighlightGroup{Title: "Job Description Matches", Items: items})
		}
		if items := r.Highlights.ResumeMatches; len(items) > 0 {
			v.Highlights = append(v.Highlights, HighlightGroup{Title: "Resume Matches", Items: items})
		}
	}

	return v
}

func section(title string, skills []string, placeholder string) SkillSection {
	s := SkillSection{Title: title, Skills: skills}
	if len(skills) == 0 {
		s.Placeholder = placeholder
	}
	return s
}

// RawJSON pretty-prints the response as it was received.
func RawJSON(r *comparator.Result) string {
	raw := []byte(r.Raw)
	if len(raw) == 0 {
		encoded, err := json.Marshal(r)
		if err != nil {
			return ""
		}
		raw = encoded
	}

	return string(pretty.PrettyOptions(raw, &pretty.Options{Width: 80, Indent: "  "}))
}
