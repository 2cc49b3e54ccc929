package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/service"
)

type latestParsedRow struct {
	ContentHash  string    `json:"content_hash"`
	InboxItemID  string    `json:"inbox_item_id"`
	ParsedItemID string    `json:"parsed_item_id"`
	DocType      string    `json:"doc_type,omitempty"`
	ParsedAt     time.Time `json:"parsed_at"`
}

func latestParsedHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, err := limitParam(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		rows, err := svc.LatestParsed(c.Request().Context(), tenantFrom(c), limit)
		if err != nil {
			return writeError(c, logger, err)
		}

		out := make([]latestParsedRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, latestParsedRow{
				ContentHash:  r.ContentHash,
				InboxItemID:  r.InboxItemID.String(),
				ParsedItemID: r.ParsedItemID.String(),
				DocType:      r.DocType.String,
				ParsedAt:     r.ParsedAt.Time,
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

type reviewRow struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	MIME        string    `json:"mime"`
	Source      string    `json:"source"`
	DeadLetters int64     `json:"dead_letters"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func needingReviewHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, err := limitParam(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		rows, err := svc.NeedingReview(c.Request().Context(), tenantFrom(c), limit)
		if err != nil {
			return writeError(c, logger, err)
		}

		out := make([]reviewRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, reviewRow{
				ID:          r.ID.String(),
				ContentHash: r.ContentHash,
				MIME:        r.Mime,
				Source:      r.Source,
				DeadLetters: r.DeadLetters,
				UpdatedAt:   r.UpdatedAt.Time,
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

type tenantSummaryResponse struct {
	TenantID  string `json:"tenant_id"`
	Received  int64  `json:"received"`
	Validated int64  `json:"validated"`
	Parsed    int64  `json:"parsed"`
	Errored   int64  `json:"errored"`
	Total     int64  `json:"total"`
}

func tenantSummaryHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		row, err := svc.TenantSummary(c.Request().Context(), tenantFrom(c))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, tenantSummaryResponse{
			TenantID:  row.TenantID,
			Received:  row.Received,
			Validated: row.Validated,
			Parsed:    row.Parsed,
			Errored:   row.Errored,
			Total:     row.Total,
		})
	}
}

type workerStatsRow struct {
	EventType string `json:"event_type"`
	Status    string `json:"status"`
	Count     int64  `json:"count"`
}

func workerStatsHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := svc.WorkerStats(c.Request().Context())
		if err != nil {
			return writeError(c, logger, err)
		}

		out := make([]workerStatsRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, workerStatsRow{EventType: r.EventType, Status: r.Status, Count: r.Count})
		}
		return c.JSON(http.StatusOK, out)
	}
}

// ── dead letters ──────────────────────────────────────────────────────────

type deadLetterRow struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Reason    string          `json:"reason"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type deadLetterListResponse struct {
	Items      []deadLetterRow `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func listDeadLettersHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, err := limitParam(c)
		if err != nil {
			return writeError(c, logger, err)
		}

		page, err := svc.ListDeadLetters(c.Request().Context(), service.ListDeadLettersInput{
			TenantID: tenantFrom(c),
			Cursor:   c.QueryParam("cursor"),
			Limit:    limit,
		})
		if err != nil {
			return writeError(c, logger, err)
		}

		resp := deadLetterListResponse{
			Items:      make([]deadLetterRow, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for _, dl := range page.Items {
			resp.Items = append(resp.Items, deadLetterRow{
				ID:        dl.ID.String(),
				EventType: dl.EventType,
				Reason:    dl.Reason,
				Payload:   json.RawMessage(dl.Payload),
				CreatedAt: dl.CreatedAt.Time,
			})
		}
		return c.JSON(http.StatusOK, resp)
	}
}

type replayRequest struct {
	IDs       []string `json:"ids"`
	EventType string   `json:"event_type"`
	Limit     int32    `json:"limit"`
	DryRun    bool     `json:"dry_run"`
}

func replayHandler(svc service.ReplayService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req replayRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error":  "validation_error",
				"detail": "invalid request body",
			})
		}

		res, err := svc.Replay(c.Request().Context(), service.ReplayInput{
			TenantID:  tenantFrom(c),
			IDs:       req.IDs,
			EventType: req.EventType,
			Limit:     req.Limit,
			DryRun:    req.DryRun,
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}
