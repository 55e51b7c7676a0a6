package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/config"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger/logctx"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
)

// BlobStore is implemented by the GridFS store.
type BlobStore interface {
	Upload(ctx context.Context, bucket, name, contentType string, r io.Reader) (string, error)
	// Remove deletes the blob behind a URL returned by Upload.
	Remove(ctx context.Context, url string) error
}

// Upload is a file attached to a mutation. Size is the declared length, or
// -1 when unknown; Duration is the declared length of a voice clip.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Duration    time.Duration
	Reader      io.Reader
}

var errTooLarge = errors.New("file too large")

// limitedReader fails instead of truncating once more than n bytes are read.
type limitedReader struct {
	r io.Reader
	n int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n < 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.n+1 {
		p = p[:l.n+1]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if l.n < 0 {
		return n, errTooLarge
	}
	return n, err
}

type uploader struct {
	blobs BlobStore
	cfg   config.FeedConfig
}

func (u uploader) image(ctx context.Context, bucket string, up *Upload) (models.Attachment, error) {
	if !strings.HasPrefix(up.ContentType, "image/") {
		return models.Attachment{}, models.NewFailure(models.UploadFailure, "upload image",
			fmt.Errorf("%w: %q is not an image", models.ErrInvalidArgument, up.ContentType))
	}
	url, err := u.put(ctx, bucket, up, u.cfg.MaxImageBytes)
	if err != nil {
		return models.Attachment{}, models.NewFailure(models.UploadFailure, "upload image", err)
	}
	return models.Attachment{Kind: models.AttachmentImage, URL: url}, nil
}

func (u uploader) voice(ctx context.Context, bucket string, up *Upload) (models.Attachment, error) {
	if !strings.HasPrefix(up.ContentType, "audio/") {
		return models.Attachment{}, models.NewFailure(models.UploadFailure, "upload voice",
			fmt.Errorf("%w: %q is not audio", models.ErrInvalidArgument, up.ContentType))
	}
	if up.Duration <= 0 || up.Duration > u.cfg.MaxVoiceLength {
		return models.Attachment{}, models.NewFailure(models.UploadFailure, "upload voice",
			fmt.Errorf("%w: voice clips must be between 0 and %s", models.ErrInvalidArgument, u.cfg.MaxVoiceLength))
	}
	url, err := u.put(ctx, bucket, up, u.cfg.MaxVoiceBytes)
	if err != nil {
		return models.Attachment{}, models.NewFailure(models.UploadFailure, "upload voice", err)
	}
	return models.Attachment{Kind: models.AttachmentVoice, URL: url, DurationMs: up.Duration.Milliseconds()}, nil
}

func (u uploader) put(ctx context.Context, bucket string, up *Upload, limit int64) (string, error) {
	if up.Reader == nil {
		return "", fmt.Errorf("%w: empty upload", models.ErrInvalidArgument)
	}
	if up.Size > limit {
		return "", fmt.Errorf("%w: %d bytes, max %d", models.ErrInvalidArgument, up.Size, limit)
	}
	name := filepath.Base(up.Name)
	if name == "." || name == "/" {
		name = "upload"
	}
	url, err := u.blobs.Upload(ctx, bucket, name, up.ContentType, &limitedReader{r: up.Reader, n: limit})
	if errors.Is(err, errTooLarge) {
		return "", fmt.Errorf("%w: max %d bytes", models.ErrInvalidArgument, limit)
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

// discard removes blobs stored for a mutation that did not complete. It
// runs past the mutation's own cancellation.
func (u uploader) discard(ctx context.Context, atts []models.Attachment) {
	if len(atts) == 0 {
		return
	}
	ctx, cancel := util.NewTimeoutContext(context.WithoutCancel(ctx), u.cfg.MutationTimeout)
	defer cancel()
	for _, a := range atts {
		if err := u.blobs.Remove(ctx, a.URL); err != nil {
			logctx.Warnw(ctx, "remove orphaned blob", "url", a.URL, "error", err)
		}
	}
}
