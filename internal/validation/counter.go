package validation

import (
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CounterLevel tells how close pasted text is to MaxJDTextLength.
type CounterLevel string

const (
	CounterNormal CounterLevel = "normal"
	CounterNear   CounterLevel = "near"
	CounterOver   CounterLevel = "over"
)

// Counter is the character counter shown under the job description text.
type Counter struct {
	Count int
	Label string
	Level CounterLevel
}

var printer = message.NewPrinter(language.English)

// CharCounter reports the length of text against MaxJDTextLength, e.g. "1,234 / 50,000".
func CharCounter(text string) Counter {
	count := utf8.RuneCountInString(text)

	level := CounterNormal
	switch {
	case count > MaxJDTextLength:
		level = CounterOver
	case count > MaxJDTextLength*9/10:
		level = CounterNear
	}

	return Counter{
		Count: count,
		Label: printer.Sprintf("%d / %d", count, MaxJDTextLength),
		Level: level,
	}
}
