package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/server/middleware"
)

type blobRequest struct {
	Bucket string `param:"bucket" validate:"required"`
	ID     string `param:"id" validate:"required"`
}

// Blob streams an uploaded file. Blob ids never change content, so
// responses are cacheable forever.
func (h *controller) Blob(c echo.Context) error {
	var req blobRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	blob, err := h.Blobs.Open(ctxOf(c), req.Bucket, req.ID)
	if err != nil {
		return err
	}
	defer blob.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentLength, strconv.FormatInt(blob.Size, 10))
	header.Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Stream(http.StatusOK, blob.ContentType, blob)
}
