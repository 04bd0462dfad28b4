// Package firestore stores battle sessions and memos in Cloud Firestore.
// Sessions live in the battleSessions collection; each session's memos live
// in its memos subcollection.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/ggmemo/ggmemo/internal/repository"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	sessionsCollection = "battleSessions"
	memosCollection    = "memos"
)

// Config holds the connection settings.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// NewClient connects to Firestore. FIRESTORE_EMULATOR_HOST is honoured by
// the SDK.
func NewClient(ctx context.Context, cfg Config) (*gfs.Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gfs.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// mapError converts gRPC status codes to repository sentinels.
func mapError(err error, op string) error {
	if errors.Is(err, repository.ErrLimitReached) {
		return err
	}
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.NotFound:
		return repository.ErrNotFound
	case codes.AlreadyExists:
		return repository.ErrAlreadyExists
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func sessions(client *gfs.Client) *gfs.CollectionRef {
	return client.Collection(sessionsCollection)
}

func memos(client *gfs.Client, sessionID string) *gfs.CollectionRef {
	return client.Collection(sessionsCollection).Doc(sessionID).Collection(memosCollection)
}

// deleteMemos deletes every memo of a session inside tx. Reads happen
// before any write as transactions require.
func deleteMemos(tx *gfs.Transaction, client *gfs.Client, sessionID string) error {
	refs, err := tx.Documents(memos(client, sessionID).Select()).GetAll()
	if err != nil {
		return err
	}
	for _, doc := range refs {
		if err := tx.Delete(doc.Ref); err != nil {
			return err
		}
	}
	return nil
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
