package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Summary is a short description of a file for display next to the file name.
// Detail is empty when the content could not be inspected.
type Summary struct {
	Name     string
	Size     int64
	MIMEType string
	Detail   string
}

// Summarize inspects the content without extracting text from it.
func (f *File) Summarize() Summary {
	s := Summary{Name: f.Name, Size: f.Size, MIMEType: f.MIMEType}

	switch f.MIMEType {
	case MIMEPDF:
		if pages, err := f.pageCount(); err == nil {
			s.Detail = plural(pages, "page")
		}
	case MIMEDocx:
		if paragraphs, err := f.paragraphCount(); err == nil {
			s.Detail = plural(paragraphs, "paragraph")
		}
	case MIMEText:
		s.Detail = plural(lineCount(f.data), "line")
	}

	return s
}

func (f *File) pageCount() (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(f.data), f.Size)
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return r.NumPage(), nil
}

func (f *File) paragraphCount() (int, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(f.data), f.Size)
	if err != nil {
		return 0, fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return strings.Count(doc.Editable().GetContent(), "</w:p>"), nil
}

func lineCount(data []byte) int {
	text := strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
