package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// FirestoreProjectStore keeps one ProjectState document per project in a
// single collection.
type FirestoreProjectStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreProjectStore wraps an existing client.
func NewFirestoreProjectStore(client *firestore.Client, collection string) *FirestoreProjectStore {
	if collection == "" {
		collection = "projects"
	}
	return &FirestoreProjectStore{client: client, collection: collection}
}

func (s *FirestoreProjectStore) Get(ctx context.Context, id string) (*models.ProjectState, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read project %s: %w", id, err)
	}
	var state models.ProjectState
	if err := snap.DataTo(&state); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	return &state, nil
}

func (s *FirestoreProjectStore) Put(ctx context.Context, state *models.ProjectState) error {
	if state == nil || state.ID == "" {
		return fmt.Errorf("project state must carry an id")
	}
	if _, err := s.client.Collection(s.collection).Doc(state.ID).Set(ctx, state); err != nil {
		return fmt.Errorf("failed to write project %s: %w", state.ID, err)
	}
	return nil
}

func (s *FirestoreProjectStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreProjectStore) List(ctx context.Context) ([]*models.ProjectState, error) {
	it := s.client.Collection(s.collection).Documents(ctx)
	var states []*models.ProjectState
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		var state models.ProjectState
		if err := snap.DataTo(&state); err != nil {
			return nil, fmt.Errorf("failed to decode project %s: %w", snap.Ref.ID, err)
		}
		states = append(states, &state)
	}
	return states, nil
}
