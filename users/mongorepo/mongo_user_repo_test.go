package mongouserrepo_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/users"
	mongouserrepo "github.com/jrsteele09/timetomeet/users/mongorepo"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "timeToMeet.users"

func userDoc(id, email string, created time.Time) bson.D {
	return bson.D{
		{Key: "userId", Value: id},
		{Key: "firstName", Value: "John"},
		{Key: "lastName", Value: "Doe"},
		{Key: "email", Value: email},
		{Key: "password", Value: "hash"},
		{Key: "permissions", Value: "user"},
		{Key: "createdOn", Value: created},
	}
}

func TestMongoUserRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mt.Run("create", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := &users.User{Email: "john@example.com", Permissions: users.PermissionUser}
		require.NoError(mt, repo.Create(ctx, user))
		require.NotEmpty(mt, user.ID)
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(ctx, &users.User{ID: "u1", Email: "john@example.com"})
		require.ErrorIs(mt, err, apperrors.ErrUserExists)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userDoc("u1", "john@example.com", created)))

		user, err := repo.GetByEmail(ctx, "john@example.com")
		require.NoError(mt, err)
		require.Equal(mt, "u1", user.ID)
		require.Equal(mt, "hash", user.PasswordHash)
		require.Equal(mt, users.PermissionUser, user.Permissions)
		require.True(mt, created.Equal(user.CreatedOn))
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "missing")
		require.ErrorIs(mt, err, apperrors.ErrUserNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			userDoc("u1", "a@example.com", created),
			userDoc("u2", "b@example.com", created.Add(time.Minute)),
		))

		list, err := repo.List(ctx)
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		require.Equal(mt, "u1", list[0].ID)
		require.Equal(mt, "u2", list[1].ID)
	})

	mt.Run("set validation token", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.SetValidationToken(ctx, "john@example.com", "reset"))
	})

	mt.Run("set validation token unknown email", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.SetValidationToken(ctx, "nobody@example.com", "reset")
		require.ErrorIs(mt, err, apperrors.ErrUserNotFound)
	})

	mt.Run("get by validation token", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		doc := append(userDoc("u1", "john@example.com", created), bson.E{Key: "validationToken", Value: "reset"})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, doc))

		user, err := repo.GetByValidationToken(ctx, "reset")
		require.NoError(mt, err)
		require.Equal(mt, "u1", user.ID)
		require.Equal(mt, "reset", user.ValidationToken)
	})

	mt.Run("empty validation token never matches", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)

		_, err := repo.GetByValidationToken(ctx, "")
		require.ErrorIs(mt, err, apperrors.ErrUserNotFound)
	})

	mt.Run("update password", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.UpdatePassword(ctx, "u1", "new-hash"))
	})

	mt.Run("update password unknown user", func(mt *mtest.T) {
		repo := mongouserrepo.New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.UpdatePassword(ctx, "missing", "new-hash")
		require.ErrorIs(mt, err, apperrors.ErrUserNotFound)
	})
}
