package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/storage"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// Upload is a file received from a client, already opened for reading.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// publisher fills event metadata and hands the event to the dispatcher.
// It runs only after the unit of work committed; dispatch failures are
// logged and never change the outcome of the operation.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newPublisher(dispatcher events.Dispatcher, logger *zap.Logger) publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return publisher{dispatcher: dispatcher, logger: logger, now: time.Now}
}

func (p publisher) publishEvent(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Error("dispatch event",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
	}
}

func userActor(userID string) events.Actor {
	return events.Actor{
		Type:   domain.SubjectTypeUser,
		UserID: &userID,
	}
}

func adminActor(adminID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeAdmin,
		AdminID: &adminID,
	}
}

// notFoundOr maps pgx.ErrNoRows to a NotFound error for resource and
// everything else to an internal error.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// storeUploads saves every upload under folder. On failure the files saved so
// far are removed.
func storeUploads(ctx context.Context, store storage.Storage, folder string, uploads ...*Upload) ([]string, error) {
	keys := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key, err := store.Save(ctx, folder, up.FileName, up.Body, up.Size, up.ContentType)
		if err != nil {
			_ = storage.DeleteAll(context.WithoutCancel(ctx), store, keys...)
			return nil, apperrors.NewInternalError(err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// discardUploads removes files whose owning rows never committed.
func discardUploads(ctx context.Context, store storage.Storage, logger *zap.Logger, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := storage.DeleteAll(context.WithoutCancel(ctx), store, keys...); err != nil {
		logger.Warn("remove orphaned uploads", zap.Strings("keys", keys), zap.Error(err))
	}
}

func missingFields(fields map[string]string) []string {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func requireFields(fields map[string]string) error {
	if missing := missingFields(fields); len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	return nil
}
