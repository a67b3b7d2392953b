package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-market/backend/internal/domain"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestTokenManagerIssuesAdminRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	role := domain.AdminRoleModerator

	signed, exp, err := tm.GenerateToken("admin-1", domain.SubjectTypeAdmin, &role)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeAdmin, claims.Subject)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.AdminRoleModerator, *claims.Role)
}

func TestUserTokenCarriesSession(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	signed, _, err := tm.GenerateUserToken("u1", "session-9")
	require.NoError(t, err)
	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
	assert.Equal(t, "session-9", claims.ID)
	assert.Nil(t, claims.Role)
}

func TestTokenManagerRejectsForeignOrExpired(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	other := NewTokenManager("other", 5)

	signed, _, err := other.GenerateToken("u1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := tm.GenerateToken("u1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)
	_, err = tm.ParseToken(stale)
	assert.Error(t, err)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestRedisAttemptLimiterWindowIsFixed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	limiter := NewRedisAttemptLimiter(client, 2, time.Minute)
	key := attemptKey("u1", domain.TokenTypeAccountActivation)

	require.NoError(t, limiter.Fail(ctx, "u1", domain.TokenTypeAccountActivation))
	assert.Equal(t, time.Minute, mr.TTL(key))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	mr.FastForward(40 * time.Second)
	require.NoError(t, limiter.Fail(ctx, "u1", domain.TokenTypeAccountActivation))
	assert.Equal(t, 20*time.Second, mr.TTL(key), "later failures keep the original window")

	blocked, err := limiter.Blocked(ctx, "u1", domain.TokenTypeAccountActivation)
	require.NoError(t, err)
	assert.True(t, blocked)

	mr.FastForward(21 * time.Second)
	blocked, err = limiter.Blocked(ctx, "u1", domain.TokenTypeAccountActivation)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRedisAttemptLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	limiter := NewRedisAttemptLimiter(client, 2, time.Minute)

	blocked, err := limiter.Blocked(ctx, "u1", domain.TokenTypeLoginVerification)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, limiter.Fail(ctx, "u1", domain.TokenTypeLoginVerification))
	require.NoError(t, limiter.Fail(ctx, "u1", domain.TokenTypeLoginVerification))

	blocked, err = limiter.Blocked(ctx, "u1", domain.TokenTypeLoginVerification)
	require.NoError(t, err)
	assert.True(t, blocked)

	// other purpose is counted separately
	blocked, err = limiter.Blocked(ctx, "u1", domain.TokenTypeAccountActivation)
	require.NoError(t, err)
	assert.False(t, blocked)

	mr.FastForward(2 * time.Minute)
	blocked, err = limiter.Blocked(ctx, "u1", domain.TokenTypeLoginVerification)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, limiter.Fail(ctx, "u1", domain.TokenTypeLoginVerification))
	require.NoError(t, limiter.Reset(ctx, "u1", domain.TokenTypeLoginVerification))
	assert.False(t, mr.Exists(attemptKey("u1", domain.TokenTypeLoginVerification)))
}

type stubUsers struct {
	users map[string]*domain.User
}

func (s stubUsers) Create(context.Context, *domain.User) error { return nil }
func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}
func (s stubUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (s stubUsers) AcceptTerms(context.Context, *domain.TermsAcceptance) error { return nil }
func (s stubUsers) GetProfile(context.Context, string) (*domain.UserProfile, error) {
	return nil, pgx.ErrNoRows
}

type stubAdmins struct {
	admins map[string]*domain.Admin
}

func (s stubAdmins) Create(context.Context, *domain.Admin) error { return nil }
func (s stubAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	if a, ok := s.admins[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}
func (s stubAdmins) GetByEmail(context.Context, string) (*domain.Admin, error) {
	return nil, pgx.ErrNoRows
}

type stubSessions struct {
	latest map[string]*domain.Session
}

func (s stubSessions) Create(context.Context, *domain.Session) error { return nil }
func (s stubSessions) Latest(_ context.Context, userID string) (*domain.Session, error) {
	if session, ok := s.latest[userID]; ok {
		return session, nil
	}
	return nil, pgx.ErrNoRows
}

func newGuardedApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm,
		stubUsers{users: map[string]*domain.User{"u1": {ID: "u1"}, "u2": {ID: "u2"}, "u3": {ID: "u3"}}},
		stubAdmins{admins: map[string]*domain.Admin{
			"a1": {ID: "a1", Role: domain.AdminRoleAdmin, Active: true},
			"m1": {ID: "m1", Role: domain.AdminRoleModerator, Active: true},
			"x1": {ID: "x1", Role: domain.AdminRoleAdmin, Active: false},
		}},
		stubSessions{latest: map[string]*domain.Session{
			"u1": {ID: "s1", UserID: "u1", Status: domain.SessionLoggedIn},
			"u2": {ID: "s2", UserID: "u2", Status: domain.SessionLoggedOut},
		}},
	)
	app.Get("/admin", mw.Handle, RequireAdmin(domain.AdminRoleAdmin), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Admin.ID)
	})
	app.Get("/member", mw.Handle, RequireUser(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAuthMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newGuardedApp(tm)

	bearer := func(id string, subject domain.SubjectType, role *domain.AdminRole) string {
		signed, _, err := tm.GenerateToken(id, subject, role)
		require.NoError(t, err)
		return "Bearer " + signed
	}
	member := func(id, sessionID string) string {
		signed, _, err := tm.GenerateUserToken(id, sessionID)
		require.NoError(t, err)
		return "Bearer " + signed
	}
	adminRole := domain.AdminRoleAdmin
	modRole := domain.AdminRoleModerator

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/admin", "", fiber.StatusUnauthorized},
		{"malformed header", "/admin", "Token abc", fiber.StatusUnauthorized},
		{"garbage token", "/admin", "Bearer abc", fiber.StatusUnauthorized},
		{"admin allowed", "/admin", bearer("a1", domain.SubjectTypeAdmin, &adminRole), fiber.StatusOK},
		{"moderator forbidden", "/admin", bearer("m1", domain.SubjectTypeAdmin, &modRole), fiber.StatusForbidden},
		{"inactive admin", "/admin", bearer("x1", domain.SubjectTypeAdmin, &adminRole), fiber.StatusUnauthorized},
		{"unknown admin", "/admin", bearer("zz", domain.SubjectTypeAdmin, &adminRole), fiber.StatusUnauthorized},
		{"member on admin route", "/admin", member("u1", "s1"), fiber.StatusForbidden},
		{"member allowed", "/member", member("u1", "s1"), fiber.StatusOK},
		{"member token without session", "/member", bearer("u1", domain.SubjectTypeUser, nil), fiber.StatusUnauthorized},
		{"superseded session", "/member", member("u1", "s0"), fiber.StatusUnauthorized},
		{"signed out member", "/member", member("u2", "s2"), fiber.StatusUnauthorized},
		{"member never signed in", "/member", member("u3", "s3"), fiber.StatusUnauthorized},
		{"admin on member route", "/member", bearer("a1", domain.SubjectTypeAdmin, &adminRole), fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
