package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kankou/internal/session"
	"kankou/internal/view"
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Sessions *session.Store
	Session  SessionConfig
	API      Pinger
	Gatherer prometheus.Gatherer
	View     view.Options
	Logger   *zap.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   view.Static(),
		MaxAge: 3600,
	}))

	app.Get("/health", HealthCheck(d.API))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	sess := Session(d.Sessions, d.Session, d.Logger)

	app.Get("/", sess, Index(d.View))
	app.Get("/search", sess, Search(d.View))
	app.Post("/modal/close", sess, CloseModal())

	app.Get("/documents/new", sess, NewDocument(d.View))
	app.Post("/documents/form/validate", sess, ValidateForm())
	app.Post("/documents", sess, CreateDocument(d.View))
	app.Get("/documents/:id/edit", sess, EditDocument(d.View))
	app.Get("/documents/:id/delete", sess, AskDelete(d.View))
	app.Post("/documents/:id/delete", sess, DeleteDocument())
	app.Post("/documents/:id", sess, UpdateDocument(d.View))

	app.Get("/types", sess, Types(d.View))
	app.Post("/types", sess, AddType(d.View))
	app.Post("/types/:id/delete", sess, RemoveType())
}
