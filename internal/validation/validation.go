package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spigell/jd-comparator/internal/document"
)

const (
	// MaxFileSize applies to both the résumé and the job description file.
	MaxFileSize = 10 * 1024 * 1024

	// MaxJDTextLength is counted in characters, not bytes.
	MaxJDTextLength = 50000
)

// Mode selects how the job description is supplied.
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeText   Mode = "text"
)

// Field is a key of Errors.
type Field string

const (
	FieldJD      Field = "jd"
	FieldResume  Field = "resume"
	FieldGeneral Field = "general"
)

// Errors maps a field to its error message. A field without a key is valid.
type Errors map[Field]string

func (e Errors) Has(field Field) bool {
	_, ok := e[field]
	return ok
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

var (
	allowedResumeTypes = []string{
		document.MIMEPDF,
		document.MIMEDoc,
		document.MIMEDocx,
		document.MIMEText,
	}
	allowedJDTypes = []string{document.MIMEPDF}
)

var (
	msgResumeRequired = "Resume file is required"
	msgFileTooLarge   = fmt.Sprintf("File size must be less than %dMB", MaxFileSize/1024/1024)
	msgResumeType     = "Invalid file type. Please upload PDF, DOC, DOCX, or TXT file"
	msgJDType         = "Invalid file type. Please upload PDF file"
	msgJDTextTooLong  = "Job description text is too long (max 50,000 characters)"
	msgJDFileMissing  = "Please upload a job description PDF or switch to text mode"
	msgJDTextMissing  = "Please enter job description text or switch to upload mode"
)

// ValidateResumeFile returns the first failing rule's message or "" when valid.
func ValidateResumeFile(f *document.File) string {
	if f == nil {
		return msgResumeRequired
	}

	if f.Size > MaxFileSize {
		return msgFileTooLarge
	}

	if !contains(allowedResumeTypes, f.MIMEType) {
		return msgResumeType
	}

	return ""
}

// ValidateJDFile treats a missing file as valid; ValidateForm decides whether it is required.
func ValidateJDFile(f *document.File) string {
	if f == nil {
		return ""
	}

	if f.Size > MaxFileSize {
		return msgFileTooLarge
	}

	if !contains(allowedJDTypes, f.MIMEType) {
		return msgJDType
	}

	return ""
}

// ValidateJDText treats blank text as valid; ValidateForm decides whether it is required.
func ValidateJDText(text string) string {
	if isBlank(text) {
		return ""
	}

	if utf8.RuneCountInString(text) > MaxJDTextLength {
		return msgJDTextTooLong
	}

	return ""
}

// ValidateForm recomputes every field. A missing job description gets a
// message steering to the other mode instead of the generic validator text.
func ValidateForm(mode Mode, jdFile *document.File, jdText string, resumeFile *document.File) Errors {
	errs := Errors{}

	if msg := ValidateResumeFile(resumeFile); msg != "" {
		errs[FieldResume] = msg
	}

	switch mode {
	case ModeText:
		if isBlank(jdText) {
			errs[FieldJD] = msgJDTextMissing
		} else if msg := ValidateJDText(jdText); msg != "" {
			errs[FieldJD] = msg
		}
	default:
		if jdFile == nil {
			errs[FieldJD] = msgJDFileMissing
		} else if msg := ValidateJDFile(jdFile); msg != "" {
			errs[FieldJD] = msg
		}
	}

	return errs
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with 1024-based units and at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := 0
	for v := bytes; v >= 1024 && i < len(sizeUnits)-1; v /= 1024 {
		i++
	}

	value := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
