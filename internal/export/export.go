package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

const csvHeader = "Missing Skills"

// ErrNothingToExport is returned for an empty skill list.
var ErrNothingToExport = errors.New("no skills to export")

// clipboardWrite is swapped in tests; the system clipboard is not available in CI.
var clipboardWrite = clipboard.WriteAll

// FormatSkillsList puts one skill per line.
func FormatSkillsList(skills []string) string {
	return strings.Join(skills, "\n")
}

// CopyToClipboard copies the skills to the system clipboard.
func CopyToClipboard(skills []string) error {
	if len(skills) == 0 {
		return ErrNothingToExport
	}

	if err := clipboardWrite(FormatSkillsList(skills)); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

// WriteCSV writes a header row followed by one skill per row.
func WriteCSV(w io.Writer, skills []string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{csvHeader}); err != nil {
		return err
	}
	for _, skill := range skills {
		if err := cw.Write([]string{skill}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVFilename is the download name for an export made at now.
func CSVFilename(now time.Time) string {
	return fmt.Sprintf("missing-skills-%s.csv", now.Format("20060102-150405"))
}

// SaveCSV writes the skills into dir and returns the file path.
func SaveCSV(dir string, skills []string, now time.Time) (string, error) {
	if len(skills) == 0 {
		return "", ErrNothingToExport
	}

	if strings.TrimSpace(dir) == "" {
		dir = "."
	}

	path := filepath.Join(dir, CSVFilename(now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating csv file: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, skills); err != nil {
		return "", fmt.Errorf("writing csv file: %w", err)
	}

	return path, nil
}
