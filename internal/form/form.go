package form

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/comparator"
	"github.com/spigell/jd-comparator/internal/document"
	"github.com/spigell/jd-comparator/internal/lifecycle"
	"github.com/spigell/jd-comparator/internal/logger"
	"github.com/spigell/jd-comparator/internal/validation"
)

// View is the screen to show for the current lifecycle state.
type View string

const (
	ViewInput   View = "input"
	ViewResults View = "results"
)

// Controller is the part of lifecycle.Controller the form drives.
type Controller interface {
	Submit(ctx context.Context, p *comparator.Payload)
	Cancel()
	Reset()
	State() lifecycle.State
}

// Input is everything the user entered.
type Input struct {
	Mode       validation.Mode
	JDFile     *document.File
	JDText     string
	ResumeFile *document.File
}

// Orchestrator gates submissions behind validation and switches views.
// It is not safe for concurrent use.
type Orchestrator struct {
	controller Controller
	logger     *zap.Logger

	input  Input
	errors validation.Errors
	last   *comparator.Payload
}

func New(controller Controller, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		controller: controller,
		logger:     logger,
		input:      Input{Mode: validation.ModeUpload},
		errors:     validation.Errors{},
	}
}

func (o *Orchestrator) Input() Input {
	return o.input
}

// Errors returns the errors of the last submit attempt.
func (o *Orchestrator) Errors() validation.Errors {
	return o.errors
}

func (o *Orchestrator) State() lifecycle.State {
	return o.controller.State()
}

// SetMode switches the job description input. Errors of the other mode are dropped.
func (o *Orchestrator) SetMode(mode validation.Mode) {
	if mode != validation.ModeText {
		mode = validation.ModeUpload
	}
	o.input.Mode = mode
	o.errors = validation.Errors{}
}

func (o *Orchestrator) SetJDFile(f *document.File) {
	o.input.JDFile = f
}

func (o *Orchestrator) SetJDText(text string) {
	o.input.JDText = text
}

func (o *Orchestrator) SetResumeFile(f *document.File) {
	o.input.ResumeFile = f
}

// Ready reports whether the submit action should be offered.
func (o *Orchestrator) Ready() bool {
	if o.input.ResumeFile == nil {
		return false
	}
	if o.input.Mode == validation.ModeText {
		return strings.TrimSpace(o.input.JDText) != ""
	}
	return o.input.JDFile != nil
}

// Submit validates the input and, when valid, starts a request.
// It reports whether a request was started.
func (o *Orchestrator) Submit(ctx context.Context) bool {
	in := o.input
	o.errors = validation.ValidateForm(in.Mode, in.JDFile, in.JDText, in.ResumeFile)

	if !o.errors.Empty() {
		fields := make([]zap.Field, 0, len(o.errors))
		for field, msg := range o.errors {
			fields = append(fields, zap.String(string(field), msg))
		}
		o.logger.Debug("submission blocked by validation", fields...)
		return false
	}

	p := &comparator.Payload{ResumeFile: in.ResumeFile}
	if in.Mode == validation.ModeText {
		p.JDText = in.JDText
	} else {
		p.JDFile = in.JDFile
	}

	o.last = p
	o.logger.Debug("submitting comparison", zap.String(logger.FieldMode, string(in.Mode)))
	o.controller.Submit(ctx, p)

	return true
}

// Retry re-runs the last submission. Without one it behaves like Submit.
func (o *Orchestrator) Retry(ctx context.Context) bool {
	if o.last == nil {
		return o.Submit(ctx)
	}

	o.controller.Submit(ctx, o.last)
	return true
}

// Dismiss clears the error and stays on the input view.
func (o *Orchestrator) Dismiss() {
	o.controller.Reset()
}

func (o *Orchestrator) Cancel() {
	o.controller.Cancel()
}

// NewComparison clears the input, the errors and the lifecycle.
func (o *Orchestrator) NewComparison() {
	o.controller.Reset()
	o.input = Input{Mode: o.input.Mode}
	o.errors = validation.Errors{}
	o.last = nil
}

// View is ViewResults once a result is available.
func (o *Orchestrator) View() View {
	if lifecycle.ResultOf(o.controller.State()) != nil {
		return ViewResults
	}
	return ViewInput
}
