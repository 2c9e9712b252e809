// Package api contains the HTTP handlers for the multi-agent manager
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"multiagent-manager/backend/internal/logging"
	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "multiagent-manager"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the health and status endpoints
type Handler struct {
	store   Pinger
	version string
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(store Pinger, version string) *Handler {
	return &Handler{store: store, version: version}
}

// HandleHealth reports service health. It answers 503 when the store is
// unreachable.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   ServiceName,
		Version:   h.version,
		Checks:    map[string]string{},
	}

	code := http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks["store"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status.Checks["store"] = "ok"
		}
	}
	writeJSON(w, code, status)
}

// HandleRoot answers with a short liveness message.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Multi-agent manager API is running"})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvocationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewProblem builds the RFC 7807 body for err. Internal causes are not
// exposed to the caller.
func NewProblem(err error) models.ProblemDetails {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	p := models.ProblemDetails{
		Type:    "about:blank",
		Title:   http.StatusText(status),
		Status:  status,
		Kind:    string(kind),
		Message: "internal error",
	}

	e, ok := apperr.As(err)
	if !ok {
		return p
	}
	p.Message = e.Message
	p.Stage = string(e.Stage)
	p.EntityID = e.EntityID
	if kind != apperr.KindInternal {
		p.Detail = e.Error()
	}
	if e.IsStep() {
		p.StepIndex = e.Position()
		p.AgentID = e.AgentID
		p.AgentName = e.AgentName
		p.PartialLog = e.PartialLog
	}
	return p
}

// ErrorHandler renders every error returned by a handler as
// application/problem+json.
func ErrorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var problem models.ProblemDetails
		var he *echo.HTTPError
		if errors.As(err, &he) {
			problem = models.ProblemDetails{
				Type:    "about:blank",
				Title:   http.StatusText(he.Code),
				Status:  he.Code,
				Kind:    string(kindForStatus(he.Code)),
				Message: messageOf(he),
			}
		} else {
			problem = NewProblem(err)
		}
		problem.Instance = c.Request().URL.Path
		if sc := trace.SpanFromContext(c.Request().Context()).SpanContext(); sc.HasTraceID() {
			problem.TraceID = sc.TraceID().String()
		}

		if problem.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", problem.Instance, "status", problem.Status, "error", err)
		}

		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(problem.Status)
			return
		}
		_ = c.JSON(problem.Status, problem)
	}
}

func kindForStatus(code int) apperr.Kind {
	switch {
	case code == http.StatusNotFound:
		return apperr.KindNotFound
	case code >= 400 && code < 500:
		return apperr.KindInvalidInput
	default:
		return apperr.KindInternal
	}
}

func messageOf(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok {
		return s
	}
	return http.StatusText(he.Code)
}
