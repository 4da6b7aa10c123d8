package sessions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/sessions"
	fakesessionrepo "github.com/jrsteele09/timetomeet/sessions/repofakes"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/stretchr/testify/require"
)

const signingKey = "1234"

// testFixture holds all test dependencies
type testFixture struct {
	now      time.Time
	repo     *fakesessionrepo.FakeSessionRepo
	verifier *token.Verifier
	manager  *sessions.Manager
}

func (f *testFixture) Now() time.Time { return f.now }

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:  time.Now(),
		repo: fakesessionrepo.NewFakeSessionRepo(),
	}
	signer := token.NewHMACSigner(signingKey)
	issuer := token.NewIssuer(signer, token.WithTTL(24*time.Hour), token.WithIssuerNowFunc(f.Now))
	f.verifier = token.NewVerifier(signer, token.WithVerifierNowFunc(f.Now))

	manager, err := sessions.NewManager(f.repo, issuer, f.verifier)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func userClaims(userID, firstName string) token.IdentityClaims {
	return token.IdentityClaims{
		UserID:      userID,
		FirstName:   firstName,
		LastName:    "Doe",
		Email:       userID + "@example.com",
		Permissions: users.PermissionUser,
	}
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	signer := token.NewHMACSigner(signingKey)
	issuer := token.NewIssuer(signer)
	verifier := token.NewVerifier(signer)

	_, err := sessions.NewManager(nil, issuer, verifier)
	require.Error(t, err)
	_, err = sessions.NewManager(fakesessionrepo.NewFakeSessionRepo(), nil, verifier)
	require.Error(t, err)
	_, err = sessions.NewManager(fakesessionrepo.NewFakeSessionRepo(), issuer, nil)
	require.Error(t, err)
}

func TestManager_LoginCreatesRecord(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.manager.Login(ctx, userClaims("u1", "A"))
	require.NoError(t, err)
	require.NotEmpty(t, result.AuthToken)
	require.Equal(t, userClaims("u1", "A"), result.UserDetails)

	record, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, result.AuthToken, record.AuthToken)
	require.Equal(t, users.PermissionUser, record.Permissions)
	require.NotEmpty(t, record.TokenSecret)
	require.WithinDuration(t, f.now, record.TokenGenerationTime, time.Second)

	claims, err := f.verifier.Verify(record.AuthToken, record.TokenSecret)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
}

func TestManager_LoginTwiceRotatesToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first, err := f.manager.Login(ctx, userClaims("u1", "A"))
	require.NoError(t, err)

	second := userClaims("u1", "B")
	second.Permissions = users.PermissionAdmin
	result, err := f.manager.Login(ctx, second)
	require.NoError(t, err)
	require.NotEqual(t, first.AuthToken, result.AuthToken)

	require.Equal(t, 1, f.repo.Count())
	record, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, result.AuthToken, record.AuthToken)
	require.Equal(t, users.PermissionAdmin, record.Permissions)

	_, err = f.verifier.Verify(result.AuthToken, record.TokenSecret)
	require.NoError(t, err)
	_, err = f.verifier.Verify(first.AuthToken, record.TokenSecret)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestManager_LoginLogoutScenario(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t1, err := f.manager.Login(ctx, userClaims("u1", "A"))
	require.NoError(t, err)
	t2, err := f.manager.Login(ctx, userClaims("u1", "A"))
	require.NoError(t, err)
	require.NotEqual(t, t1.AuthToken, t2.AuthToken)

	require.NoError(t, f.manager.Logout(ctx, "u1"))
	require.Equal(t, 0, f.repo.Count())

	require.ErrorIs(t, f.manager.Logout(ctx, "u1"), apperrors.ErrNoActiveSession)
	require.ErrorIs(t, f.manager.Logout(ctx, "u1"), apperrors.ErrNoActiveSession)
}

func TestManager_LogoutWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Logout(context.Background(), "nobody")
	require.ErrorIs(t, err, apperrors.ErrNoActiveSession)
}

func TestManager_PersistenceFailures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.repo.Err = errors.New("store unreachable")

	_, err := f.manager.Login(ctx, userClaims("u1", "A"))
	require.ErrorIs(t, err, apperrors.ErrSessionPersistenceFailed)

	err = f.manager.Logout(ctx, "u1")
	require.ErrorIs(t, err, apperrors.ErrSessionPersistenceFailed)
	require.NotErrorIs(t, err, apperrors.ErrNoActiveSession)
}

func TestManager_IssuanceFailure(t *testing.T) {
	repo := fakesessionrepo.NewFakeSessionRepo()
	signer := token.NewHMACSigner("")
	manager, err := sessions.NewManager(repo, token.NewIssuer(signer), token.NewVerifier(signer))
	require.NoError(t, err)

	_, err = manager.Login(context.Background(), userClaims("u1", "A"))
	require.ErrorIs(t, err, apperrors.ErrTokenIssuanceFailed)
	require.Equal(t, 0, repo.Count())
}

func TestManager_LoginRequiresUserID(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Login(context.Background(), token.IdentityClaims{FirstName: "A"})
	require.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}

func TestManager_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("current token", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := f.manager.Login(ctx, userClaims("u1", "A"))
		require.NoError(t, err)

		claims, record, err := f.manager.Authenticate(ctx, result.AuthToken)
		require.NoError(t, err)
		require.Equal(t, "u1", claims.UserID)
		require.Equal(t, result.AuthToken, record.AuthToken)
	})

	t.Run("rotated token", func(t *testing.T) {
		f := setupTestFixture(t)
		first, err := f.manager.Login(ctx, userClaims("u1", "A"))
		require.NoError(t, err)
		_, err = f.manager.Login(ctx, userClaims("u1", "A"))
		require.NoError(t, err)

		_, _, err = f.manager.Authenticate(ctx, first.AuthToken)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("after logout", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := f.manager.Login(ctx, userClaims("u1", "A"))
		require.NoError(t, err)
		require.NoError(t, f.manager.Logout(ctx, "u1"))

		_, _, err = f.manager.Authenticate(ctx, result.AuthToken)
		require.ErrorIs(t, err, apperrors.ErrNoActiveSession)
	})

	t.Run("expired token stays an active session", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := f.manager.Login(ctx, userClaims("u1", "A"))
		require.NoError(t, err)

		f.now = f.now.Add(25 * time.Hour)

		_, _, err = f.manager.Authenticate(ctx, result.AuthToken)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
		require.Equal(t, 1, f.repo.Count())
	})

	t.Run("garbage", func(t *testing.T) {
		f := setupTestFixture(t)
		_, _, err := f.manager.Authenticate(ctx, "garbage")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestManager_ConcurrentLoginsKeepOneRecord(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Login(ctx, userClaims("u1", "A"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 1, f.repo.Count())
	record, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)
	_, err = f.verifier.Verify(record.AuthToken, record.TokenSecret)
	require.NoError(t, err)
}
