package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"multiagent-manager/backend/internal/logging"
)

// RouterOptions collects everything mounted on the echo instance. Nil
// handlers are skipped.
type RouterOptions struct {
	Server  *Server
	Health  *Handler
	Metrics http.Handler
	MCP     http.Handler
	Logger  *logging.Logger
	// ServerURL is substituted into the served OpenAPI document.
	ServerURL string
}

// NewRouter builds the echo instance with middleware and every route.
func NewRouter(opts RouterOptions) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(ServiceName))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.Round(time.Microsecond)}
			if v.Error != nil {
				args = append(args, "cause", v.Error.Error())
			}
			logger.Debug("request", args...)
			return nil
		},
	}))

	if opts.Health != nil {
		e.GET("/", echo.WrapHandler(http.HandlerFunc(opts.Health.HandleRoot)))
		e.GET("/health", echo.WrapHandler(http.HandlerFunc(opts.Health.HandleHealth)))
	}
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	if opts.Server != nil {
		RegisterHandlers(e.Group("/api/v1"), opts.Server)
	}

	if opts.MCP != nil {
		e.Any("/mcp/*", echo.WrapHandler(opts.MCP))
	}

	e.GET("/openapi.yaml", echo.WrapHandler(SpecHandler(opts.ServerURL)))
	e.GET("/docs", echo.WrapHandler(SwaggerHandler()))
	return e
}
