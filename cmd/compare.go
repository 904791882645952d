package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/comparator"
	"github.com/spigell/jd-comparator/internal/document"
	"github.com/spigell/jd-comparator/internal/export"
	"github.com/spigell/jd-comparator/internal/form"
	"github.com/spigell/jd-comparator/internal/lifecycle"
	"github.com/spigell/jd-comparator/internal/results"
	"github.com/spigell/jd-comparator/internal/utils"
	"github.com/spigell/jd-comparator/internal/validation"
)

const (
	PromptUploadPDF     = "Upload PDF"
	PromptPasteText     = "Paste Text"
	PromptRetry         = "Retry"
	PromptDismiss       = "Dismiss"
	PromptCompareAgain  = "Compare again"
	PromptChangeResume  = "Change resume"
	PromptChangeJD      = "Change job description"
	PromptCopy          = "Copy missing skills to clipboard"
	PromptExportCSV     = "Export missing skills to CSV"
	PromptShowRaw       = "Show raw JSON"
	PromptHideRaw       = "Hide raw JSON"
	PromptNewComparison = "New comparison"
	PromptExit          = "Exit"

	labelResume = "Resume file"
	labelJDFile = "Job description PDF"
	labelJDText = "Job description text"

	spinnerInterval = 100 * time.Millisecond
)

var (
	errValidation       = errors.New("the form has errors")
	errComparisonFailed = errors.New("comparison failed")

	// Both send the session back to the input step.
	errNewComparison = errors.New("new comparison requested")
	errEditInput     = errors.New("input needs changes")
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

type compareOptions struct {
	resume     string
	jdFile     string
	jdText     string
	jdTextFile string
	mode       string

	noInteractive bool
	csv           bool
	copy          bool
	raw           bool
}

var compareOpts compareOptions

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a resume with a job description",
	Run: func(_ *cobra.Command, _ []string) {
		config, logger, client := setup()

		if err := compare(config, logger, client, compareOpts); err != nil {
			logger.Fatal("comparing", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	flags := compareCmd.Flags()
	flags.StringVarP(&compareOpts.resume, "resume", "r", "", "resume file (PDF, DOC, DOCX or TXT)")
	flags.StringVar(&compareOpts.jdFile, "jd-file", "", "job description PDF")
	flags.StringVar(&compareOpts.jdText, "jd-text", "", "job description text")
	flags.StringVar(&compareOpts.jdTextFile, "jd-text-file", "", "read the job description text from a file, - for stdin")
	flags.StringVarP(&compareOpts.mode, "mode", "m", "", "job description input: upload or text (default is taken from the given flags)")
	flags.BoolVarP(&compareOpts.noInteractive, "no-interactive", "y", false, "do not prompt, print the result and exit")
	flags.BoolVar(&compareOpts.csv, "csv", false, "save missing skills as CSV into export.dir")
	flags.BoolVar(&compareOpts.copy, "copy", false, "copy missing skills to the clipboard")
	flags.BoolVar(&compareOpts.raw, "raw", false, "print the raw JSON response")

	flags.String("export-dir", "", "directory for CSV exports (default is the current directory)")
	viper.BindPFlag("export.dir", flags.Lookup("export-dir"))
}

// prompter asks the user for input.
type prompter struct {
	selectItem func(label string, items []string) (string, error)
	path       func(label string) (string, error)
	text       func(label string) (string, error)
}

func terminalPrompter() prompter {
	return prompter{
		selectItem: selectItem,
		path:       promptPath,
		text: func(label string) (string, error) {
			return readText(os.Stdin, os.Stderr, label)
		},
	}
}

// session drives one orchestrator from the terminal. Interactive sessions
// return to the input step after validation errors and dismissed failures.
type session struct {
	form        *form.Orchestrator
	controller  *lifecycle.Controller
	config      *Config
	opts        compareOptions
	interactive bool
	prompt      prompter

	out    io.Writer
	errOut io.Writer
}

func newSession(comparer lifecycle.Comparer, logger *zap.Logger, config *Config, opts compareOptions, prompt prompter) *session {
	controller := lifecycle.New(comparer, logger.Named("lifecycle"))

	return &session{
		form:        form.New(controller, logger.Named("form")),
		controller:  controller,
		config:      config,
		opts:        opts,
		interactive: !opts.noInteractive,
		prompt:      prompt,
		out:         os.Stdout,
		errOut:      os.Stderr,
	}
}

// compare runs comparisons until the user exits. SIGINT cancels the request in flight.
func compare(config *Config, logger *zap.Logger, client *comparator.Client, opts compareOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newSession(client, logger, config, opts, terminalPrompter()).run(ctx)
}

func (s *session) run(ctx context.Context) error {
	for {
		err := s.collectInput()
		if err == nil {
			err = s.submit(ctx)
		}

		switch {
		case err == nil:
			return nil
		case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
			return nil
		case errors.Is(err, errNewComparison):
			s.form.NewComparison()
			s.opts.resume, s.opts.jdFile, s.opts.jdText, s.opts.jdTextFile = "", "", "", ""
		case errors.Is(err, errEditInput):
		default:
			return err
		}
	}
}

// submit checks Ready first when interactive, so an empty answer is asked again
// instead of being reported as a validation error.
func (s *session) submit(ctx context.Context) error {
	if s.interactive && !s.form.Ready() {
		fmt.Fprintln(s.errOut, "Both a resume and a job description are required")
		s.clearMissing()
		return errEditInput
	}

	return s.runComparison(ctx)
}

func (s *session) runComparison(ctx context.Context) error {
	started := s.form.Submit(ctx)

	for {
		if !started {
			errs := s.form.Errors()
			printErrors(s.errOut, errs)
			if !s.interactive {
				return errValidation
			}

			s.clearInvalid(errs)
			return errEditInput
		}

		state, err := s.awaitResult(ctx)
		if err != nil {
			s.form.Cancel()
			s.controller.Wait()
			fmt.Fprintln(s.errOut, "Comparison cancelled")
			return nil
		}

		switch st := state.(type) {
		case lifecycle.Success:
			return s.followUp(st.Result)
		case lifecycle.Failed:
			fmt.Fprintf(s.errOut, "Error: %s\n", st.Message)
			if !s.interactive {
				return errComparisonFailed
			}

			choice, err := s.prompt.selectItem("Comparison failed", []string{PromptRetry, PromptDismiss})
			if err == nil && choice == PromptRetry {
				started = s.form.Retry(ctx)
				continue
			}

			s.form.Dismiss()
			return s.editInput()
		default:
			return nil
		}
	}
}

// editInput is the input step after a dismissed failure. The entered values are kept.
func (s *session) editInput() error {
	choice, err := s.prompt.selectItem("Edit the comparison", []string{
		PromptCompareAgain, PromptChangeResume, PromptChangeJD, PromptExit,
	})
	if err != nil {
		return err
	}

	switch choice {
	case PromptChangeResume:
		s.opts.resume = ""
	case PromptChangeJD:
		s.opts.mode, s.opts.jdFile, s.opts.jdText, s.opts.jdTextFile = "", "", "", ""
	case PromptExit:
		return nil
	}

	return errEditInput
}

// clearInvalid drops the answers that failed validation so they are asked again.
func (s *session) clearInvalid(errs validation.Errors) {
	if errs.Has(validation.FieldResume) {
		s.opts.resume = ""
	}
	if errs.Has(validation.FieldJD) {
		s.opts.jdFile, s.opts.jdText, s.opts.jdTextFile = "", "", ""
	}
}

func (s *session) clearMissing() {
	in := s.form.Input()
	if in.ResumeFile == nil {
		s.opts.resume = ""
	}
	if in.Mode == validation.ModeText && strings.TrimSpace(in.JDText) == "" {
		s.opts.jdText, s.opts.jdTextFile = "", ""
	}
	if in.Mode == validation.ModeUpload && in.JDFile == nil {
		s.opts.jdFile = ""
	}
}

// awaitResult spins until the request settles. It fails only when ctx is done.
func (s *session) awaitResult(ctx context.Context) (lifecycle.State, error) {
	frame := 0
	err := utils.Poll(ctx, spinnerInterval,
		func() bool { return !lifecycle.IsLoading(s.form.State()) },
		func() {
			fmt.Fprintf(s.errOut, "\r%s Comparing...", spinnerFrames[frame%len(spinnerFrames)])
			frame++
		},
	)
	if frame > 0 {
		fmt.Fprint(s.errOut, "\r\033[K")
	}

	return s.form.State(), err
}

func (s *session) followUp(result *comparator.Result) error {
	showRaw := s.opts.raw
	if err := results.RenderText(s.out, result, showRaw); err != nil {
		return err
	}

	if s.opts.copy {
		s.copySkills(result)
	}
	if s.opts.csv {
		s.saveSkills(result)
	}

	if !s.interactive {
		return nil
	}

	for {
		items := []string{}
		if len(result.MissingSkills) > 0 {
			items = append(items, PromptCopy, PromptExportCSV)
		}
		if showRaw {
			items = append(items, PromptHideRaw)
		} else {
			items = append(items, PromptShowRaw)
		}
		items = append(items, PromptNewComparison, PromptExit)

		choice, err := s.prompt.selectItem("What next?", items)
		if err != nil {
			return nil
		}

		switch choice {
		case PromptCopy:
			s.copySkills(result)
		case PromptExportCSV:
			s.saveSkills(result)
		case PromptShowRaw, PromptHideRaw:
			showRaw = !showRaw
			if err := results.RenderText(s.out, result, showRaw); err != nil {
				return err
			}
		case PromptNewComparison:
			return errNewComparison
		default:
			return nil
		}
	}
}

func (s *session) copySkills(result *comparator.Result) {
	if err := export.CopyToClipboard(result.MissingSkills); err != nil {
		fmt.Fprintf(s.errOut, "Failed to copy to clipboard: %s\n", err)
		return
	}
	fmt.Fprintln(s.out, "Copied to clipboard!")
}

func (s *session) saveSkills(result *comparator.Result) {
	path, err := export.SaveCSV(s.config.Export.Dir, result.MissingSkills, time.Now())
	if err != nil {
		fmt.Fprintf(s.errOut, "Failed to export CSV: %s\n", err)
		return
	}
	fmt.Fprintf(s.out, "Saved %s\n", path)
}

// collectInput fills the form from the options, prompting for what is missing when interactive.
func (s *session) collectInput() error {
	mode, err := s.chooseMode()
	if err != nil {
		return err
	}
	s.opts.mode = string(mode)
	s.form.SetMode(mode)

	if s.opts.resume == "" && s.interactive {
		if s.opts.resume, err = s.prompt.path(labelResume); err != nil {
			return err
		}
	}
	if s.opts.resume != "" {
		resume, err := document.Open(s.opts.resume)
		if err != nil {
			return err
		}
		s.form.SetResumeFile(resume)
		s.printSummary("Resume", resume)
	}

	if mode == validation.ModeText {
		text, err := s.jdText()
		if err != nil {
			return err
		}
		s.form.SetJDText(text)
		fmt.Fprintf(s.out, "Job description: %s characters\n", validation.CharCounter(text).Label)
		return nil
	}

	if s.opts.jdFile == "" && s.interactive {
		if s.opts.jdFile, err = s.prompt.path(labelJDFile); err != nil {
			return err
		}
	}
	if s.opts.jdFile != "" {
		jd, err := document.Open(s.opts.jdFile)
		if err != nil {
			return err
		}
		s.form.SetJDFile(jd)
		s.printSummary("Job description", jd)
	}

	return nil
}

func (s *session) chooseMode() (validation.Mode, error) {
	mode, err := modeFromOptions(&s.opts, s.interactive)
	if err != nil || mode != "" {
		return mode, err
	}

	choice, err := s.prompt.selectItem("Job description", []string{PromptUploadPDF, PromptPasteText})
	if err != nil {
		return "", err
	}
	if choice == PromptPasteText {
		return validation.ModeText, nil
	}
	return validation.ModeUpload, nil
}

// modeFromOptions returns "" when the mode has to be asked for.
func modeFromOptions(opts *compareOptions, interactive bool) (validation.Mode, error) {
	switch {
	case opts.mode != "":
		mode := validation.Mode(strings.ToLower(strings.TrimSpace(opts.mode)))
		if mode != validation.ModeUpload && mode != validation.ModeText {
			return "", fmt.Errorf("unknown mode %q, use upload or text", opts.mode)
		}
		return mode, nil
	case opts.jdText != "" || opts.jdTextFile != "":
		return validation.ModeText, nil
	case opts.jdFile != "" || !interactive:
		return validation.ModeUpload, nil
	}

	return "", nil
}

// jdText reads the text once; later rounds reuse it from opts.jdText.
func (s *session) jdText() (string, error) {
	var (
		text string
		err  error
	)

	switch {
	case s.opts.jdText != "":
		return s.opts.jdText, nil
	case s.opts.jdTextFile == "-":
		text, err = readText(os.Stdin, nil, "")
	case s.opts.jdTextFile != "":
		var data []byte
		if data, err = os.ReadFile(s.opts.jdTextFile); err != nil {
			err = fmt.Errorf("reading job description text: %w", err)
		}
		text = string(data)
	case s.interactive:
		text, err = s.prompt.text(labelJDText)
	}
	if err != nil {
		return "", err
	}

	s.opts.jdText, s.opts.jdTextFile = text, ""
	return text, nil
}

// readText reads everything up to EOF so pasted multi-line text stays whole.
func readText(r io.Reader, hint io.Writer, label string) (string, error) {
	if hint != nil {
		fmt.Fprintf(hint, "%s (paste it, then press Ctrl-D on an empty line):\n", label)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading job description text: %w", err)
	}
	return string(data), nil
}

func promptPath(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("path is required")
			}
			if _, err := os.Stat(strings.TrimSpace(input)); err != nil {
				return errors.New("file not found")
			}
			return nil
		},
	}

	path, err := prompt.Run()
	return strings.TrimSpace(path), err
}

func selectItem(label string, items []string) (string, error) {
	prompt := promptui.Select{Label: label, Items: items}
	_, choice, err := prompt.Run()
	return choice, err
}

func (s *session) printSummary(label string, f *document.File) {
	summary := f.Summarize()
	details := validation.FormatFileSize(summary.Size)
	if summary.Detail != "" {
		details += ", " + summary.Detail
	}
	fmt.Fprintf(s.out, "%s: %s (%s)\n", label, summary.Name, details)
}

func printErrors(w io.Writer, errs validation.Errors) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, string(field))
	}
	sort.Strings(fields)

	for _, field := range fields {
		fmt.Fprintf(w, "%s: %s\n", field, errs[validation.Field(field)])
	}
}
