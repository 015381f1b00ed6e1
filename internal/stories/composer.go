package stories

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
	"github.com/mzazimhenga22/movieflix-sub004/internal/payload"
)

var (
	ErrMissingMedia     = errors.New("media payload not found")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Compose builds a story draft from media previously staged in the
// payload store. Only image and video payloads are postable; the payload
// id doubles as the media reference until upload replaces it with a
// remote one.
func Compose(store *payload.Store, authorID, payloadID string) (model.StoryPost, error) {
	data, ok := store.Get(payloadID)
	if !ok {
		return model.StoryPost{}, ErrMissingMedia
	}
	switch payload.Sniff(data) {
	case payload.KindImage, payload.KindVideo:
	default:
		return model.StoryPost{}, ErrUnsupportedMedia
	}
	return model.StoryPost{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		MediaRef:  payloadID,
		CreatedAt: time.Now().UnixMilli(),
	}, nil
}
