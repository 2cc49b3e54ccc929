// Package handler mounts the document pipeline's HTTP surface onto echo.
//
// Handlers stay thin: bind, call the service, translate the error. The
// stable error codes come from the fault taxonomy; every error body is
// {"error": "<code>", "detail": "<human text>"}.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/fault"
	mw "github.com/docflow-io/docflow/internal/middleware"
	"github.com/docflow-io/docflow/internal/service"
	"github.com/docflow-io/docflow/internal/tenant"
)

// Pinger reports database liveness; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes mounts all endpoints onto the echo instance. Every /v1
// route sits behind TenantAuth; /healthz stays open for probes.
func RegisterRoutes(
	e *echo.Echo,
	cfg *config.Config,
	ingest service.IngestService,
	reader service.ReaderService,
	replay service.ReplayService,
	validator *tenant.Validator,
	pinger Pinger,
	logger *zap.Logger,
) {
	e.GET("/healthz", healthHandler(pinger))

	v1 := e.Group("/v1", mw.TenantAuth(validator, logger))

	// ── Ingestion ──────────────────────────────────────────────────────────
	v1.POST("/inbox/items", ingestItemHandler(cfg, ingest, logger))
	v1.POST("/inbox/fetch", ingestFetchHandler(ingest, logger))

	// ── Inbox reads ────────────────────────────────────────────────────────
	v1.GET("/inbox/items", listItemsHandler(reader, logger))
	v1.GET("/inbox/items/:id", getItemHandler(reader, logger))
	v1.GET("/inbox/review", needingReviewHandler(reader, logger))
	v1.GET("/parsed/latest", latestParsedHandler(reader, logger))

	// ── Operations ─────────────────────────────────────────────────────────
	v1.GET("/stats/summary", tenantSummaryHandler(reader, logger))
	v1.GET("/stats/workers", workerStatsHandler(reader, logger))
	v1.GET("/deadletters", listDeadLettersHandler(reader, logger))
	v1.POST("/deadletters/replay", replayHandler(replay, logger))
}

func healthHandler(pinger Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"detail": "database unreachable",
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// tenantFrom reads the tenant resolved by TenantAuth. Routes registered
// under /v1 always have one.
func tenantFrom(c echo.Context) string {
	id, _ := mw.GetTenantID(c.Request().Context())
	return id
}

// writeError translates a service error into the wire shape. Fault codes map
// to their fixed statuses; anything untyped is a 500 logged server-side.
func writeError(c echo.Context, logger *zap.Logger, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error":  "not_found",
			"detail": "no such resource",
		})
	}

	var fe *fault.Error
	if errors.As(err, &fe) {
		detail := string(fe.Code)
		if fe.Err != nil {
			detail = fe.Err.Error()
		}
		return c.JSON(statusForCode(fe.Code), map[string]string{
			"error":  string(fe.Code),
			"detail": detail,
		})
	}

	logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error":  string(fault.CodeIO),
		"detail": "internal error",
	})
}

func statusForCode(code fault.Code) int {
	switch code {
	case fault.CodeValidation, fault.CodeUnsupportedScheme, fault.CodeRedirectLimit, fault.CodeParse:
		return http.StatusBadRequest
	case fault.CodeTenantMissing, fault.CodeTenantMalformed:
		return http.StatusUnauthorized
	case fault.CodeTenantUnknown, fault.CodeForbiddenAddress:
		return http.StatusForbidden
	case fault.CodeSizeLimit:
		return http.StatusRequestEntityTooLarge
	case fault.CodeUnsupportedMIME:
		return http.StatusUnsupportedMediaType
	case fault.CodeHashDuplicate:
		return http.StatusConflict
	case fault.CodeRemoteTimeout:
		return http.StatusGatewayTimeout
	case fault.CodeIO:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
