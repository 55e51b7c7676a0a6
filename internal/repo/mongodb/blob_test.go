package mongodb

import (
	"testing"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBlobRef(t *testing.T) {
	t.Parallel()

	s := NewBlobStore(nil, "https://kvrp.example/")
	oid := primitive.NewObjectID()

	bucket, got, err := s.blobRef(s.URL(BucketChatVoice, oid.Hex()))
	require.NoError(t, err)
	assert.Equal(t, BucketChatVoice, bucket)
	assert.Equal(t, oid, got)

	for _, url := range []string{
		"https://elsewhere.example/api/v1/blobs/chat-voice/" + oid.Hex(),
		"https://kvrp.example/api/v1/blobs/chat-voice",
		"https://kvrp.example/api/v1/blobs/chat-voice/not-hex",
	} {
		_, _, err := s.blobRef(url)
		assert.ErrorIs(t, err, models.ErrInvalidArgument, url)
	}
}
