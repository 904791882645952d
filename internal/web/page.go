package web

import (
	"github.com/spigell/jd-comparator/internal/document"
	"github.com/spigell/jd-comparator/internal/form"
	"github.com/spigell/jd-comparator/internal/lifecycle"
	"github.com/spigell/jd-comparator/internal/results"
	"github.com/spigell/jd-comparator/internal/validation"
)

const (
	viewInput   = "input"
	viewLoading = "loading"
	viewResults = "results"
)

// page is the template data of index.html.
type page struct {
	View string
	Mode string

	JDError      string
	ResumeError  string
	GeneralError string
	Failure      string

	JDFile     *document.Summary
	ResumeFile *document.Summary
	JDText     string
	Counter    validation.Counter
	MaxLength  int

	Results *results.View
	Copied  copyStatus
	ShowRaw bool
	Raw     string
}

func (s *Server) pageLocked() *page {
	in := s.form.Input()
	errs := s.form.Errors()
	state := s.form.State()

	p := &page{
		View:         viewInput,
		Mode:         string(in.Mode),
		JDError:      errs[validation.FieldJD],
		ResumeError:  errs[validation.FieldResume],
		GeneralError: errs[validation.FieldGeneral],
		Failure:      lifecycle.ErrorOf(state),
		JDFile:       summarize(in.JDFile),
		ResumeFile:   summarize(in.ResumeFile),
		JDText:       in.JDText,
		Counter:      validation.CharCounter(in.JDText),
		MaxLength:    validation.MaxJDTextLength,
		Copied:       s.copied,
		ShowRaw:      s.showRaw,
	}

	switch {
	case lifecycle.IsLoading(state):
		p.View = viewLoading
	case s.form.View() == form.ViewResults:
		result := lifecycle.ResultOf(state)
		p.View = viewResults
		p.Results = results.NewView(result)
		if s.showRaw {
			p.Raw = results.RawJSON(result)
		}
	}

	return p
}

func summarize(f *document.File) *document.Summary {
	if f == nil {
		return nil
	}

	summary := f.Summarize()
	return &summary
}
