package web

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/comparator"
	"github.com/spigell/jd-comparator/internal/document"
	"github.com/spigell/jd-comparator/internal/export"
	"github.com/spigell/jd-comparator/internal/lifecycle"
	"github.com/spigell/jd-comparator/internal/validation"
)

const (
	msgCopied     = "Copied!"
	msgCopyFailed = "Failed to copy to clipboard"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"state":  s.controller.State().Name(),
	})
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.renderLocked(c, fiber.StatusOK)
}

// handleMode switches to the posted mode, or toggles when none is posted.
func (s *Server) handleMode(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := validation.Mode(c.FormValue("mode"))
	if mode == "" {
		mode = validation.ModeText
		if s.form.Input().Mode == validation.ModeText {
			mode = validation.ModeUpload
		}
	}
	s.form.SetMode(mode)

	return c.Redirect("/", fiber.StatusSeeOther)
}

// handleCompare keeps previously uploaded files when the form comes without new ones.
func (s *Server) handleCompare(c *fiber.Ctx) error {
	files := uploadedFiles(c)

	jdFile, err := firstFile(files, comparator.FieldJDFile)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	resumeFile, err := firstFile(files, comparator.FieldResumeFile)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lifecycle.IsLoading(s.form.State()) {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	if jdFile != nil {
		s.form.SetJDFile(jdFile)
	}
	if resumeFile != nil {
		s.form.SetResumeFile(resumeFile)
	}
	if s.form.Input().Mode == validation.ModeText {
		s.form.SetJDText(c.FormValue(comparator.FieldJDText))
	}

	if !s.form.Submit(s.ctx) {
		return s.renderLocked(c, fiber.StatusUnprocessableEntity)
	}
	s.copied = copyStatus{}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form.Cancel()
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleRetry(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.form.Retry(s.ctx) {
		return s.renderLocked(c, fiber.StatusUnprocessableEntity)
	}
	s.copied = copyStatus{}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleDismiss(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form.Dismiss()
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleNew(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form.NewComparison()
	s.showRaw = false
	s.copied = copyStatus{}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleToggleRaw(c *fiber.Ctx) error {
	s.mu.Lock()
	s.showRaw = !s.showRaw
	s.mu.Unlock()

	return c.Redirect("/", fiber.StatusSeeOther)
}

// handleCopy reports the outcome on the results view instead of failing the request.
func (s *Server) handleCopy(c *fiber.Ctx) error {
	result := lifecycle.ResultOf(s.controller.State())
	if result == nil || len(result.MissingSkills) == 0 {
		return fiber.NewError(fiber.StatusNotFound, export.ErrNothingToExport.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.copied = copyStatus{Message: msgCopied}
	if err := s.copySkills(result.MissingSkills); err != nil {
		s.logger.Warn("copying missing skills", zap.Error(err))
		s.copied = copyStatus{Message: msgCopyFailed, Failed: true}
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	result := lifecycle.ResultOf(s.controller.State())
	if result == nil || len(result.MissingSkills) == 0 {
		return fiber.NewError(fiber.StatusNotFound, export.ErrNothingToExport.Error())
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, result.MissingSkills); err != nil {
		return fmt.Errorf("exporting missing skills: %w", err)
	}

	c.Attachment(export.CSVFilename(time.Now()))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")

	return c.Send(buf.Bytes())
}

func (s *Server) renderLocked(c *fiber.Ctx, status int) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, s.pageLocked()); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// uploadedFiles is empty for requests that are not multipart.
func uploadedFiles(c *fiber.Ctx) map[string][]*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	return form.File
}

func firstFile(files map[string][]*multipart.FileHeader, field string) (*document.File, error) {
	headers := files[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, nil
	}

	return document.FromUpload(headers[0])
}
