package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/icoxfog417/agentcore-handshake/domain"
	serrors "github.com/icoxfog417/agentcore-handshake/errors"
)

// SessionRepositoryMongo implements domain.SessionRepository using MongoDB.
type SessionRepositoryMongo struct {
	collection *mongo.Collection
}

// NewSessionRepositoryMongo creates a new SessionRepositoryMongo and
// ensures the collection's indexes, including TTL-based cleanup on
// expires_at.
func NewSessionRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.SessionRepository, error) {
	repo := &SessionRepositoryMongo{
		collection: db.Collection(BindingSessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "bound_identity", Value: 1}},
			// Not unique, one user can run several authorization attempts.
			Options: options.Index(),
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			// Sweep lags expiry by the grace window so a late callback
			// still gets a precise expiry error.
			Options: options.Index().SetExpireAfterSeconds(900),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for binding sessions collection (might already exist)")
	}

	return repo, nil
}

// CreateSession persists a new binding session.
func (r *SessionRepositoryMongo) CreateSession(ctx context.Context, session *domain.BindingSession) error {
	if session.ID == "" {
		return errors.New("session ID is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("session %w: duplicate id", serrors.ErrStorageUnavailable)
		}
		log.Error().Err(err).Msg("Error storing binding session in MongoDB")
		return fmt.Errorf("%w: %v", serrors.ErrStorageUnavailable, err)
	}
	return nil
}

// GetSessionByID retrieves a binding session by its id.
func (r *SessionRepositoryMongo) GetSessionByID(ctx context.Context, id string) (*domain.BindingSession, error) {
	var session domain.BindingSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.ErrSessionNotFound
		}
		log.Error().Err(err).Msg("Error getting binding session from MongoDB")
		return nil, err
	}
	return &session, nil
}

// ConsumeSession flips the consumed flag with a conditional update, so two
// concurrent callback deliveries cannot both pass.
func (r *SessionRepositoryMongo) ConsumeSession(ctx context.Context, id string) (bool, error) {
	filter := bson.M{"_id": id, "consumed": false}
	update := bson.M{"$set": bson.M{"consumed": true}}

	err := r.collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Msg("Error consuming binding session in MongoDB")
		return false, err
	}

	// No unconsumed match: either the session never existed or it was
	// consumed by a concurrent delivery.
	count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return false, countErr
	}
	if count == 0 {
		return false, serrors.ErrSessionNotFound
	}
	return false, nil
}

// DeleteExpiredSessions removes expired records eagerly; the TTL index
// covers the steady state.
func (r *SessionRepositoryMongo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC().Add(-15 * time.Minute)}})
	return err
}
