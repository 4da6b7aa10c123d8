// Package mongosessionrepo stores session records in a MongoDB collection
// with a unique index on userId.
package mongosessionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/sessions"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "auths"

var _ sessions.Repo = (*MongoSessionRepo)(nil)

type authDocument struct {
	UserID              string    `bson:"userId"`
	AuthToken           string    `bson:"authToken"`
	TokenSecret         string    `bson:"tokenSecret"`
	Permissions         string    `bson:"permissions"`
	TokenGenerationTime time.Time `bson:"tokenGenerationTime"`
}

func (d authDocument) toRecord() *sessions.Record {
	return &sessions.Record{
		UserID:              d.UserID,
		AuthToken:           d.AuthToken,
		TokenSecret:         d.TokenSecret,
		Permissions:         users.Permission(d.Permissions),
		TokenGenerationTime: d.TokenGenerationTime,
	}
}

type MongoSessionRepo struct {
	collection *mongo.Collection
}

func New(db *mongo.Database) *MongoSessionRepo {
	return &MongoSessionRepo{collection: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique index on userId that backs the
// one-session-per-user rule
func (r *MongoSessionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// Upsert overwrites the user's record, creating it when absent, in a single
// findAndModify.
func (r *MongoSessionRepo) Upsert(ctx context.Context, record *sessions.Record) (*sessions.Record, error) {
	update := bson.M{
		"$set": bson.M{
			"authToken":           record.AuthToken,
			"tokenSecret":         record.TokenSecret,
			"permissions":         string(record.Permissions),
			"tokenGenerationTime": record.TokenGenerationTime,
		},
		"$setOnInsert": bson.M{
			"userId": record.UserID,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc authDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"userId": record.UserID}, update, opts).Decode(&doc)
	if err != nil {
		log.Err(err).Str("userId", record.UserID).Msg("Failed to upsert session")
		return nil, fmt.Errorf("failed to upsert session: %w", err)
	}
	return doc.toRecord(), nil
}

func (r *MongoSessionRepo) Get(ctx context.Context, userID string) (*sessions.Record, error) {
	var doc authDocument
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		log.Err(err).Str("userId", userID).Msg("Failed to find session")
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return doc.toRecord(), nil
}

func (r *MongoSessionRepo) Delete(ctx context.Context, userID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		log.Err(err).Str("userId", userID).Msg("Failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
