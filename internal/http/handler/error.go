package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kankou/internal/http/middleware"
	"kankou/internal/logger"
	"kankou/internal/view"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "FORM_CLOSED", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorKind struct {
	code    string
	message string
	page    string
}

var errorKinds = map[int]errorKind{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request", "Requête invalide"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found", "Page introuvable"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed", "Méthode non autorisée"},
	fiber.StatusConflict:              {"CONFLICT", "conflict", "Action impossible pour le moment"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "payload too large", "Le fichier est trop volumineux"},
	fiber.StatusServiceUnavailable:    {"SERVICE_UNAVAILABLE", "dependency unavailable", "Service indisponible"},
}

var internalError = errorKind{"INTERNAL_ERROR", "internal server error", "Une erreur est survenue"}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses. Browsers get the HTML error page, other clients the JSON envelope.
func ErrorHandler(l *zap.Logger) fiber.ErrorHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		kind, ok := errorKinds[status]
		if !ok {
			kind = internalError
			if status < fiber.StatusInternalServerError {
				status = fiber.StatusInternalServerError
			}
		}
		if status >= fiber.StatusInternalServerError {
			logger.FromContext(c.UserContext(), l).Error("request failed",
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		if wantsHTML(c) {
			page := view.NewErrorPage(status, kind.page, requestIDFromCtx(c))
			if rerr := c.Status(status).Render(view.TemplateError, page, view.LayoutMain); rerr == nil {
				return nil
			}
		}
		return writeError(c, status, kind.code, kind.message)
	}
}

func wantsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}
