package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/internal/usecase"
)

// uploads collects the files of a multipart request and closes them
// once the mutation is done.
type uploads struct {
	files []multipart.File
}

func (u *uploads) Close() {
	for _, f := range u.files {
		_ = f.Close()
	}
}

// get returns nil when the request is not multipart or has no such field.
func (u *uploads) get(c echo.Context, field string) (*usecase.Upload, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidArgument, field, err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	u.files = append(u.files, f)
	return &usecase.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Reader:      f,
	}, nil
}

// voice is get plus the declared clip length in milliseconds.
func (u *uploads) voice(c echo.Context, field string, durationMs int64) (*usecase.Upload, error) {
	up, err := u.get(c, field)
	if up != nil {
		up.Duration = time.Duration(durationMs) * time.Millisecond
	}
	return up, err
}
