// file: service/auth_service_test.go

package service

import (
	"context"
	"errors"
	"pharmacy-api/common"
	"pharmacy-api/config"
	"pharmacy-api/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:     "test-access-secret",
		RefreshSecret:    "test-refresh-secret",
		HMACSecret:       "test-hmac-secret",
		AccessTTLMinutes: 15,
		RefreshTTLDays:   7,
	}
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *mockUserRepo) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *mockUserRepo) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.User), args.Error(1)
}
func (m *mockUserRepo) UpdateUserRole(ctx context.Context, userID int, newRole string) error {
	args := m.Called(ctx, userID, newRole)
	return args.Error(0)
}
func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, userID int, fullName, email string) (*model.User, error) {
	args := m.Called(ctx, userID, fullName, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
func (m *mockUserRepo) SetEmailVerified(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockTokenRepo struct{ mock.Mock }

func (m *mockTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
func (m *mockTokenRepo) FindActive(ctx context.Context, token string, kind model.TokenKind) (*model.AuthToken, error) {
	args := m.Called(ctx, token, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthToken), args.Error(1)
}
func (m *mockTokenRepo) Consume(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *mockTokenRepo) Revoke(ctx context.Context, token string, kind model.TokenKind) error {
	args := m.Called(ctx, token, kind)
	return args.Error(0)
}
func (m *mockTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func activeUser() *model.User {
	return &model.User{
		ID:       1,
		FullName: "Test User",
		Email:    "a@x.com",
		Role:     model.RoleStaff,
		Status:   model.StatusActive,
	}
}

// TestAuthService_HashAndCheckPassword ensures that password hashing and verification work correctly.
func TestAuthService_HashAndCheckPassword(t *testing.T) {
	authService := NewAuthService(nil, nil, testJWTConfig(), nil)
	password := "mySecretPassword123"

	hashedPassword, err := authService.HashPassword(password)
	if err != nil {
		t.Fatalf("authService.HashPassword() returned an unexpected error: %v", err)
	}

	if hashedPassword == password {
		t.Errorf("Hashed password should not be the same as the original password.")
	}

	if !authService.CheckPasswordHash(password, hashedPassword) {
		t.Errorf("CheckPasswordHash() should have returned true for a matching password.")
	}

	if authService.CheckPasswordHash("notMyPassword", hashedPassword) {
		t.Errorf("CheckPasswordHash() should have returned false for a non-matching password.")
	}

	// A malformed digest must verify to false, not panic.
	if authService.CheckPasswordHash(password, "not-a-bcrypt-digest") {
		t.Errorf("CheckPasswordHash() should have returned false for a malformed digest.")
	}
}

func TestAuthService_TokenKindSeparation(t *testing.T) {
	authService := NewAuthService(nil, nil, testJWTConfig(), nil)
	user := activeUser()

	access, refresh, err := authService.GenerateTokenPair(user)
	assert.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	// Each token verifies only under its own kind.
	claims, err := authService.VerifyToken(access, model.TokenKindAccess)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Role, claims.Role)
	assert.Equal(t, model.PermissionsForRole(user.Role), claims.Permissions)

	_, err = authService.VerifyToken(refresh, model.TokenKindRefresh)
	assert.NoError(t, err)

	// A refresh token presented as an access token (and vice versa) is a
	// signature mismatch, never a pass.
	_, err = authService.VerifyToken(refresh, model.TokenKindAccess)
	assert.ErrorIs(t, err, common.ErrTokenSignature)

	_, err = authService.VerifyToken(access, model.TokenKindRefresh)
	assert.ErrorIs(t, err, common.ErrTokenSignature)
}

func TestAuthService_VerifyToken_Expired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessTTLMinutes = -1
	authService := NewAuthService(nil, nil, cfg, nil)

	access, _, err := authService.GenerateTokenPair(activeUser())
	assert.NoError(t, err)

	_, err = authService.VerifyToken(access, model.TokenKindAccess)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestAuthService_VerifyToken_Malformed(t *testing.T) {
	authService := NewAuthService(nil, nil, testJWTConfig(), nil)

	_, err := authService.VerifyToken("definitely-not-a-jwt", model.TokenKindAccess)
	assert.ErrorIs(t, err, common.ErrTokenMalformed)
}

func TestAuthService_Login(t *testing.T) {
	password := "secret123"

	t.Run("success", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

		user := activeUser()
		user.Password, _ = authService.HashPassword(password)

		userRepo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(user, nil).Once()
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *model.AuthToken) bool {
			return tok.Kind == model.TokenKindRefresh && tok.UserID == user.ID
		})).Return(nil).Once()
		userRepo.On("UpdateLastLogin", mock.Anything, user.ID).Return(nil).Once()

		result, err := authService.Login(context.Background(), "A@X.com", password)
		assert.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		userRepo.AssertExpectations(t)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		authService := NewAuthService(userRepo, new(mockTokenRepo), testJWTConfig(), nil)

		user := activeUser()
		user.Password, _ = authService.HashPassword(password)

		userRepo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(user, nil).Once()
		userRepo.On("GetUserByEmail", mock.Anything, "ghost@x.com").Return(nil, common.ErrUserNotFound).Once()

		_, errWrongPassword := authService.Login(context.Background(), "a@x.com", "wrong-password")
		_, errUnknownEmail := authService.Login(context.Background(), "ghost@x.com", password)

		assert.ErrorIs(t, errWrongPassword, common.ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknownEmail, common.ErrInvalidCredentials)
		assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
	})

	t.Run("inactive account", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		authService := NewAuthService(userRepo, new(mockTokenRepo), testJWTConfig(), nil)

		user := activeUser()
		user.Status = model.StatusInactive
		user.Password, _ = authService.HashPassword(password)

		userRepo.On("GetUserByEmail", mock.Anything, "a@x.com").Return(user, nil).Once()

		_, err := authService.Login(context.Background(), "a@x.com", password)
		assert.ErrorIs(t, err, common.ErrAccountInactive)
	})
}

func TestAuthService_Register(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

		userRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			// Email is normalized and the stored credential is a digest.
			return u.Email == "new@x.com" && u.Password != "secret123" && u.Role == model.RoleStaff
		})).Return(nil).Once()
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *model.AuthToken) bool {
			return tok.Kind == model.TokenKindRefresh
		})).Return(nil).Once()
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *model.AuthToken) bool {
			return tok.Kind == model.TokenKindEmailVerification
		})).Return(nil).Once()
		userRepo.On("UpdateLastLogin", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := authService.Register(context.Background(), model.RegisterRequest{
			FullName: "New User",
			Email:    "New@X.com",
			Password: "secret123",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.True(t, authService.CheckPasswordHash("secret123", result.User.Password))
		userRepo.AssertExpectations(t)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		authService := NewAuthService(userRepo, new(mockTokenRepo), testJWTConfig(), nil)

		userRepo.On("CreateUser", mock.Anything, mock.Anything).Return(common.ErrEmailTaken).Once()

		_, err := authService.Register(context.Background(), model.RegisterRequest{
			FullName: "Dup User",
			Email:    "dup@x.com",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, common.ErrEmailTaken)
	})

	t.Run("invalid role", func(t *testing.T) {
		authService := NewAuthService(new(mockUserRepo), new(mockTokenRepo), testJWTConfig(), nil)

		_, err := authService.Register(context.Background(), model.RegisterRequest{
			FullName: "Bad Role",
			Email:    "bad@x.com",
			Password: "secret123",
			Role:     "superuser",
		})
		assert.ErrorIs(t, err, common.ErrInvalidRole)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Run("success rotates the token", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

		user := activeUser()
		_, oldRefresh, err := authService.GenerateTokenPair(user)
		assert.NoError(t, err)

		entry := &model.AuthToken{ID: 42, UserID: user.ID, Token: oldRefresh, Kind: model.TokenKindRefresh}
		tokenRepo.On("FindActive", mock.Anything, oldRefresh, model.TokenKindRefresh).Return(entry, nil).Once()
		userRepo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		tokenRepo.On("Consume", mock.Anything, 42).Return(nil).Once()
		tokenRepo.On("Create", mock.Anything, mock.MatchedBy(func(tok *model.AuthToken) bool {
			return tok.Kind == model.TokenKindRefresh && tok.Token != oldRefresh
		})).Return(nil).Once()

		access, refresh, err := authService.Refresh(context.Background(), oldRefresh)
		assert.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.NotEqual(t, oldRefresh, refresh)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("replayed token is rejected and no new entry is recorded", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

		user := activeUser()
		_, oldRefresh, err := authService.GenerateTokenPair(user)
		assert.NoError(t, err)

		entry := &model.AuthToken{ID: 42, UserID: user.ID, Token: oldRefresh, Kind: model.TokenKindRefresh}
		tokenRepo.On("FindActive", mock.Anything, oldRefresh, model.TokenKindRefresh).Return(entry, nil).Once()
		userRepo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		tokenRepo.On("Consume", mock.Anything, 42).Return(common.ErrTokenUsed).Once()

		access, refresh, err := authService.Refresh(context.Background(), oldRefresh)
		assert.ErrorIs(t, err, common.ErrTokenUsed)
		assert.Empty(t, access)
		assert.Empty(t, refresh)
		tokenRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("consumed token is not found on the second sequential call", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

		user := activeUser()
		_, oldRefresh, err := authService.GenerateTokenPair(user)
		assert.NoError(t, err)

		tokenRepo.On("FindActive", mock.Anything, oldRefresh, model.TokenKindRefresh).
			Return(nil, common.ErrTokenNotFound).Once()

		_, _, err = authService.Refresh(context.Background(), oldRefresh)
		assert.ErrorIs(t, err, common.ErrTokenNotFound)
	})

	t.Run("forged token never reaches the ledger", func(t *testing.T) {
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(new(mockUserRepo), tokenRepo, testJWTConfig(), nil)

		_, _, err := authService.Refresh(context.Background(), "forged-token")
		assert.ErrorIs(t, err, common.ErrTokenNotFound)
		tokenRepo.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inactive user cannot rotate", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

		user := activeUser()
		_, oldRefresh, err := authService.GenerateTokenPair(user)
		assert.NoError(t, err)

		inactive := activeUser()
		inactive.Status = model.StatusSuspended

		entry := &model.AuthToken{ID: 42, UserID: user.ID, Token: oldRefresh, Kind: model.TokenKindRefresh}
		tokenRepo.On("FindActive", mock.Anything, oldRefresh, model.TokenKindRefresh).Return(entry, nil).Once()
		userRepo.On("GetUserByID", mock.Anything, user.ID).Return(inactive, nil).Once()

		_, _, err = authService.Refresh(context.Background(), oldRefresh)
		assert.ErrorIs(t, err, common.ErrAccountInactive)
		tokenRepo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	})
}

// inMemoryLedger is a mutex-guarded ITokenRepository used to exercise the
// rotation race: its Consume has the same conditional-update semantics the
// SQL implementation gets from the database.
type inMemoryLedger struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]*model.AuthToken
}

func newInMemoryLedger() *inMemoryLedger {
	return &inMemoryLedger{nextID: 1, entries: make(map[int]*model.AuthToken)}
}

func (l *inMemoryLedger) Create(_ context.Context, token *model.AuthToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Token == token.Token && e.Kind == token.Kind {
			return common.ErrDuplicateToken
		}
	}
	token.ID = l.nextID
	l.nextID++
	cp := *token
	l.entries[cp.ID] = &cp
	return nil
}

func (l *inMemoryLedger) FindActive(_ context.Context, token string, kind model.TokenKind) (*model.AuthToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Token == token && e.Kind == kind && !e.Used && e.ExpiresAt.After(time.Now()) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, common.ErrTokenNotFound
}

func (l *inMemoryLedger) Consume(_ context.Context, id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok || e.Used {
		return common.ErrTokenUsed
	}
	e.Used = true
	return nil
}

func (l *inMemoryLedger) Revoke(_ context.Context, token string, kind model.TokenKind) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Token == token && e.Kind == kind {
			e.Used = true
		}
	}
	return nil
}

func (l *inMemoryLedger) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (l *inMemoryLedger) countRefreshEntries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Kind == model.TokenKindRefresh {
			n++
		}
	}
	return n
}

// TestAuthService_Refresh_ConcurrentRotation drives many goroutines at the
// same refresh token: exactly one rotation may win, and exactly one new
// ledger entry may appear.
func TestAuthService_Refresh_ConcurrentRotation(t *testing.T) {
	ledger := newInMemoryLedger()
	userRepo := new(mockUserRepo)
	authService := NewAuthService(userRepo, ledger, testJWTConfig(), nil)

	user := activeUser()
	userRepo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

	_, oldRefresh, err := authService.GenerateTokenPair(user)
	assert.NoError(t, err)
	err = ledger.Create(context.Background(), &model.AuthToken{
		UserID:    user.ID,
		Token:     oldRefresh,
		Kind:      model.TokenKindRefresh,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = authService.Refresh(context.Background(), oldRefresh)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, common.ErrTokenUsed) || errors.Is(err, common.ErrTokenNotFound),
				"unexpected refresh error: %v", err)
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent rotation must succeed")
	// The spent lineage token plus exactly one replacement.
	assert.Equal(t, 2, ledger.countRefreshEntries())
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("revokes the token", func(t *testing.T) {
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(new(mockUserRepo), tokenRepo, testJWTConfig(), nil)

		tokenRepo.On("Revoke", mock.Anything, "some-refresh-token", model.TokenKindRefresh).Return(nil).Once()

		err := authService.Logout(context.Background(), "some-refresh-token")
		assert.NoError(t, err)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("empty token is a no-op", func(t *testing.T) {
		tokenRepo := new(mockTokenRepo)
		authService := NewAuthService(new(mockUserRepo), tokenRepo, testJWTConfig(), nil)

		err := authService.Logout(context.Background(), "")
		assert.NoError(t, err)
		tokenRepo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_VerifyEmail(t *testing.T) {
	userRepo := new(mockUserRepo)
	tokenRepo := new(mockTokenRepo)
	authService := NewAuthService(userRepo, tokenRepo, testJWTConfig(), nil)

	entry := &model.AuthToken{ID: 7, UserID: 1, Kind: model.TokenKindEmailVerification}
	// The ledger stores the digest, never the raw token.
	tokenRepo.On("FindActive", mock.Anything, authService.hmacDigest("raw-token"), model.TokenKindEmailVerification).
		Return(entry, nil).Once()
	tokenRepo.On("Consume", mock.Anything, 7).Return(nil).Once()
	userRepo.On("SetEmailVerified", mock.Anything, 1).Return(nil).Once()

	err := authService.VerifyEmail(context.Background(), "raw-token")
	assert.NoError(t, err)
	userRepo.AssertExpectations(t)
	tokenRepo.AssertExpectations(t)
}
