package mongodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BucketChatImages        = "chat-images"
	BucketChatVoice         = "chat-voice"
	BucketPostImages        = "post-images"
	BucketReportScreenshots = "report-screenshots"
)

const blobPath = "/api/v1/blobs/"

var buckets = []string{BucketChatImages, BucketChatVoice, BucketPostImages, BucketReportScreenshots}

type Blob struct {
	io.ReadCloser
	Name        string
	ContentType string
	Size        int64
}

// BlobStore keeps uploaded media in GridFS and serves them back by URL.
type BlobStore struct {
	db      *DB
	baseURL string
}

func NewBlobStore(db *DB, publicBaseURL string) *BlobStore {
	return &BlobStore{
		db:      db,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// bucket is built per call since deadlines are set on the bucket itself.
func (s *BlobStore) bucket(name string) (*gridfs.Bucket, error) {
	if !slices.Contains(buckets, name) {
		return nil, fmt.Errorf("%w: unknown bucket %q", models.ErrInvalidArgument, name)
	}
	return gridfs.NewBucket(s.db.Database, options.GridFSBucket().SetName(name))
}

func deadline(ctx context.Context) time.Time {
	d, _ := ctx.Deadline()
	return d
}

// Upload stores r and returns its public URL.
func (s *BlobStore) Upload(ctx context.Context, bucket, name, contentType string, r io.Reader) (string, error) {
	b, err := s.bucket(bucket)
	if err != nil {
		return "", err
	}
	if err := b.SetWriteDeadline(deadline(ctx)); err != nil {
		return "", err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	id, err := b.UploadFromStream(name, r, opts)
	if err != nil {
		return "", fmt.Errorf("upload to %s: %w", bucket, err)
	}
	return s.URL(bucket, id.Hex()), nil
}

func (s *BlobStore) URL(bucket, id string) string {
	return s.baseURL + blobPath + bucket + "/" + id
}

// blobRef splits a URL built by URL back into bucket and file id.
func (s *BlobStore) blobRef(url string) (string, primitive.ObjectID, error) {
	rest, ok := strings.CutPrefix(url, s.baseURL+blobPath)
	if !ok {
		return "", primitive.NilObjectID, fmt.Errorf("%w: not a blob url %q", models.ErrInvalidArgument, url)
	}
	bucket, id, ok := strings.Cut(rest, "/")
	if !ok {
		return "", primitive.NilObjectID, fmt.Errorf("%w: not a blob url %q", models.ErrInvalidArgument, url)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", primitive.NilObjectID, fmt.Errorf("%w: bad blob id %q", models.ErrInvalidArgument, id)
	}
	return bucket, oid, nil
}

// Remove deletes the blob behind url. A blob already gone is not an error.
func (s *BlobStore) Remove(ctx context.Context, url string) error {
	bucket, oid, err := s.blobRef(url)
	if err != nil {
		return err
	}
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.SetWriteDeadline(deadline(ctx)); err != nil {
		return err
	}
	if err := b.Delete(oid); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("remove %s/%s: %w", bucket, oid.Hex(), err)
	}
	return nil
}

func (s *BlobStore) Open(ctx context.Context, bucket, id string) (*Blob, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	if err := b.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, err
	}
	stream, err := b.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", bucket, id, err)
	}

	file := stream.GetFile()
	var meta struct {
		ContentType string `bson:"content_type"`
	}
	if len(file.Metadata) > 0 {
		_ = bson.Unmarshal(file.Metadata, &meta)
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/octet-stream"
	}
	return &Blob{
		ReadCloser:  stream,
		Name:        file.Name,
		ContentType: meta.ContentType,
		Size:        file.Length,
	}, nil
}
