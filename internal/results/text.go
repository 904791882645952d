package results

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/spigell/jd-comparator/internal/comparator"
)

const textTemplate = `{{ with .View.Warnings }}Warnings:
{{ range . }}  ! {{ . }}
{{ end }}
{{ end }}Overall Match: {{ .View.Percent }}% ({{ .View.Tier.Name }})
{{ bar .View.Percent }}

{{ template "section" .View.Matched }}
{{ template "section" .View.Missing }}
{{- with .View.Highlights }}
Highlights:
{{- range . }}
  {{ .Title }}:
{{- range .Items }}
    - {{ .Term }}: {{ .Context }}
{{- end }}
{{- end }}
{{ end }}
{{- if .Raw }}
Raw JSON:
{{ .Raw }}
{{- end }}
{{ define "section" }}{{ .Title }} ({{ len .Skills }}):
{{ if .Placeholder }}  {{ .Placeholder }}
{{ else }}{{ range .Skills }}  - {{ . }}
{{ end }}{{ end }}{{ end }}`

const barWidth = 40

var tmpl = template.Must(template.New("results").Funcs(template.FuncMap{"bar": bar}).Parse(textTemplate))

// RenderText writes the terminal form of r. With showRaw the full response is appended.
func RenderText(w io.Writer, r *comparator.Result, showRaw bool) error {
	data := struct {
		View *View
		Raw  string
	}{View: NewView(r)}

	if showRaw {
		data.Raw = strings.TrimRight(RawJSON(r), "\n")
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering results: %w", err)
	}
	return nil
}

func bar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * barWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}
