package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/docflow-io/docflow/internal/config"
	"github.com/docflow-io/docflow/internal/fault"
	db "github.com/docflow-io/docflow/internal/repository/db"
	"github.com/docflow-io/docflow/internal/service"
)

// HeaderIdempotencyKey carries the caller's dedupe key for a submission.
const HeaderIdempotencyKey = "Idempotency-Key"

type ingestResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Duplicate   bool   `json:"duplicate"`
	ContentHash string `json:"content_hash"`
	MIME        string `json:"mime"`
}

func ingestResponseFrom(res *service.IngestResult) ingestResponse {
	return ingestResponse{
		ID:          res.Item.ID.String(),
		Status:      res.Item.Status,
		Duplicate:   res.Duplicate,
		ContentHash: res.Item.ContentHash,
		MIME:        res.Item.Mime,
	}
}

// ingestItemHandler accepts a document as a multipart "file" part or as the
// raw request body (filename then comes from the ?filename query).
func ingestItemHandler(cfg *config.Config, svc service.IngestService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, filename, err := readUpload(c, cfg.MaxUploadBytes)
		if err != nil {
			return writeError(c, logger, err)
		}

		res, err := svc.Ingest(c.Request().Context(), service.IngestInput{
			TenantID:       tenantFrom(c),
			Source:         service.SourceUpload,
			Filename:       filename,
			IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
			Data:           data,
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, ingestResponseFrom(res))
	}
}

func readUpload(c echo.Context, maxBytes int64) ([]byte, string, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		part, err := c.FormFile("file")
		if err != nil {
			return nil, "", fault.New(fault.CodeValidation, "multipart upload needs a \"file\" part")
		}
		f, err := part.Open()
		if err != nil {
			return nil, "", fault.Wrap(fault.CodeIO, err)
		}
		defer f.Close()
		data, err := readCapped(f, maxBytes)
		if err != nil {
			return nil, "", err
		}
		return data, part.Filename, nil
	}

	data, err := readCapped(c.Request().Body, maxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, c.QueryParam("filename"), nil
}

// readCapped reads at most maxBytes; anything longer rejects before the
// body is buffered whole.
func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fault.Wrap(fault.CodeIO, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fault.New(fault.CodeSizeLimit, "body exceeds cap %d", maxBytes)
	}
	return data, nil
}

type fetchRequest struct {
	URL            string `json:"url"`
	IdempotencyKey string `json:"idempotency_key"`
}

func ingestFetchHandler(svc service.IngestService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req fetchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error":  string(fault.CodeValidation),
				"detail": "invalid request body",
			})
		}

		res, err := svc.IngestFromURL(c.Request().Context(), service.FetchInput{
			TenantID:       tenantFrom(c),
			URL:            req.URL,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, ingestResponseFrom(res))
	}
}

// ── inbox reads ───────────────────────────────────────────────────────────

type itemResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	ContentHash string    `json:"content_hash"`
	URI         string    `json:"uri"`
	Source      string    `json:"source"`
	Filename    string    `json:"filename,omitempty"`
	MIME        string    `json:"mime"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func itemResponseFrom(item db.InboxItem) itemResponse {
	return itemResponse{
		ID:          item.ID.String(),
		Status:      item.Status,
		ContentHash: item.ContentHash,
		URI:         item.Uri,
		Source:      item.Source,
		Filename:    item.Filename.String,
		MIME:        item.Mime,
		CreatedAt:   item.CreatedAt.Time,
		UpdatedAt:   item.UpdatedAt.Time,
	}
}

type itemListResponse struct {
	Items      []itemResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func listItemsHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, err := limitParam(c)
		if err != nil {
			return writeError(c, logger, err)
		}

		page, err := svc.ListItems(c.Request().Context(), service.ListItemsInput{
			TenantID: tenantFrom(c),
			Status:   c.QueryParam("status"),
			Cursor:   c.QueryParam("cursor"),
			Limit:    limit,
		})
		if err != nil {
			return writeError(c, logger, err)
		}

		resp := itemListResponse{
			Items:      make([]itemResponse, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for _, item := range page.Items {
			resp.Items = append(resp.Items, itemResponseFrom(item))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func getItemHandler(svc service.ReaderService, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		item, err := svc.GetItem(c.Request().Context(), tenantFrom(c), c.Param("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, itemResponseFrom(item))
	}
}

func limitParam(c echo.Context) (int32, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fault.New(fault.CodeValidation, "limit must be a non-negative integer")
	}
	return int32(n), nil
}
