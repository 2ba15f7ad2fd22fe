package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

const collectionTransitions = "session_events"

// TransitionRepository implements ports.TransitionRepository using MongoDB.
type TransitionRepository struct {
	col *mongo.Collection
}

func NewTransitionRepository(db *mongo.Database) ports.TransitionRepository {
	return &TransitionRepository{col: db.Collection(collectionTransitions)}
}

// InsertTransition appends one settled session transition to the audit trail.
func (r *TransitionRepository) InsertTransition(ctx context.Context, t domain.Transition) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"client_id":     t.ClientID,
		"op":            string(t.Op),
		"phase":         string(t.Phase),
		"request_id":    int64(t.RequestID),
		"authenticated": t.Authenticated,
		"timestamp":     t.At.UTC(),
		"recorded_at":   time.Now().UTC(),
	}
	if t.Role != "" {
		doc["role"] = string(t.Role)
	}
	if t.Error != "" {
		doc["error"] = t.Error
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}
