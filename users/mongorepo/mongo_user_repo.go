// Package mongouserrepo stores the user directory in a MongoDB collection.
package mongouserrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "users"

var _ users.UserRepo = (*MongoUserRepo)(nil)

type userDocument struct {
	UserID       string    `bson:"userId"`
	FirstName    string    `bson:"firstName"`
	LastName     string    `bson:"lastName"`
	Email        string    `bson:"email"`
	MobileNumber string    `bson:"mobileNumber,omitempty"`
	CountryCode  string    `bson:"countryCode,omitempty"`
	Password     string    `bson:"password"`
	Permissions  string    `bson:"permissions"`
	CreatedOn    time.Time `bson:"createdOn"`

	ValidationToken string `bson:"validationToken,omitempty"`
}

func toDocument(u *users.User) userDocument {
	return userDocument{
		UserID:       u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		CountryCode:  u.CountryCode,
		Password:     u.PasswordHash,
		Permissions:  string(u.Permissions),
		CreatedOn:    u.CreatedOn,

		ValidationToken: u.ValidationToken,
	}
}

func (d userDocument) toUser() *users.User {
	return &users.User{
		ID:           d.UserID,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		MobileNumber: d.MobileNumber,
		CountryCode:  d.CountryCode,
		PasswordHash: d.Password,
		Permissions:  users.Permission(d.Permissions),
		CreatedOn:    d.CreatedOn,

		ValidationToken: d.ValidationToken,
	}
}

type MongoUserRepo struct {
	collection *mongo.Collection
}

func New(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{collection: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique indexes on userId and email, and a sparse
// index for reset token lookups
func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "validationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := r.collection.InsertOne(ctx, toDocument(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrUserExists
		}
		log.Err(err).Str("email", user.Email).Msg("Failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"userId": id})
}

func (r *MongoUserRepo) List(ctx context.Context) ([]*users.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdOn", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Err(err).Msg("Failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	userList := make([]*users.User, 0, len(docs))
	for _, d := range docs {
		userList = append(userList, d.toUser())
	}
	return userList, nil
}

func (r *MongoUserRepo) SetValidationToken(ctx context.Context, email, token string) error {
	return r.updateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"validationToken": token}})
}

func (r *MongoUserRepo) GetByValidationToken(ctx context.Context, token string) (*users.User, error) {
	if token == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"validationToken": token})
}

func (r *MongoUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$set":   bson.M{"password": passwordHash},
		"$unset": bson.M{"validationToken": ""},
	})
}

func (r *MongoUserRepo) updateOne(ctx context.Context, filter, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Err(err).Msg("Failed to update user")
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		log.Err(err).Msg("Failed to find user")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toUser(), nil
}
