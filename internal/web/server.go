// Package web serves the comparison form as server-rendered HTML for a single
// local user.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/jd-comparator/internal/export"
	"github.com/spigell/jd-comparator/internal/form"
	"github.com/spigell/jd-comparator/internal/lifecycle"
	"github.com/spigell/jd-comparator/internal/validation"
)

const (
	appName = "jd-comparator"

	// Room for two files at validation.MaxFileSize plus the text field.
	bodyLimit = 32 << 20

	shutdownTimeout = 5 * time.Second
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"fileSize": validation.FormatFileSize,
}).ParseFS(templatesFS, "templates/index.html"))

type Server struct {
	app        *fiber.App
	controller *lifecycle.Controller
	logger     *zap.Logger

	// copySkills puts the missing skills on the clipboard of the machine
	// running the server, which is the user's own for a local listener.
	copySkills func(skills []string) error

	// mu guards everything below; form.Orchestrator is not safe for concurrent use.
	mu      sync.Mutex
	form    *form.Orchestrator
	showRaw bool
	copied  copyStatus
	ctx     context.Context
}

// copyStatus is the outcome of the last copy action, shown on the results view.
type copyStatus struct {
	Message string
	Failed  bool
}

// New builds the server around comparer. Nothing listens until Run.
func New(comparer lifecycle.Comparer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	controller := lifecycle.New(comparer, logger.Named("lifecycle"))

	s := &Server{
		controller: controller,
		logger:     logger,
		copySkills: export.CopyToClipboard,
		form:       form.New(controller, logger.Named("form")),
		ctx:        context.Background(),
	}

	// Immutable: form values outlive the request in the orchestrator.
	s.app = fiber.New(fiber.Config{
		AppName:               appName,
		BodyLimit:             bodyLimit,
		Immutable:             true,
		ReadTimeout:           30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	s.app.Use(s.logRequests)

	s.routes()

	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/", s.handleIndex)
	s.app.Get("/export.csv", s.handleExport)
	s.app.Get("/raw", s.handleToggleRaw)

	s.app.Post("/mode", s.handleMode)
	s.app.Post("/compare", s.handleCompare)
	s.app.Post("/cancel", s.handleCancel)
	s.app.Post("/retry", s.handleRetry)
	s.app.Post("/dismiss", s.handleDismiss)
	s.app.Post("/new", s.handleNew)
	s.app.Post("/copy", s.handleCopy)
}

// Run listens on addr until ctx is done, then shuts the server down and
// aborts any comparison still in flight.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, gctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.ctx = gctx
	s.mu.Unlock()

	g.Go(func() error {
		s.logger.Info("web ui is listening", zap.String("addr", addr))
		if err := s.app.Listen(addr); err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down the web ui")

		s.controller.Reset()
		s.controller.Wait()

		return s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	return g.Wait()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	s.logger.Debug("handled request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)

	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(code).SendString(err.Error())
}
