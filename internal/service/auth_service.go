package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/auth"
	"github.com/campus-market/backend/internal/config"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/repository"
	"github.com/campus-market/backend/internal/storage"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// AuthService coordinates registration, the two step sign in and sessions.
type AuthService struct {
	tx       repository.TxManager
	users    repository.UserRepository
	tokens   repository.TokenRepository
	sessions repository.SessionRepository
	admins   repository.AdminRepository
	storage  storage.Storage
	limiter  auth.AttemptLimiter
	tokenMgr *auth.TokenManager
	events   publisher
	logger   *zap.Logger

	bcryptCost   int
	codeTTL      time.Duration
	termsVersion string
	now          func() time.Time
	generateCode func() (string, error)
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	TxManager    repository.TxManager
	UserRepo     repository.UserRepository
	TokenRepo    repository.TokenRepository
	SessionRepo  repository.SessionRepository
	AdminRepo    repository.AdminRepository
	Storage      storage.Storage
	Limiter      auth.AttemptLimiter
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// RegisterInput is the sign up form.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	Campus      string
	Avatar      *Upload
}

// LoginResult is returned once the sign in code was verified.
type LoginResult struct {
	Profile     *domain.UserProfile
	AccessToken string
	ExpiresAt   time.Time
}

// SessionView is the latest session row with the caller's projection.
type SessionView struct {
	Session *domain.Session
	Profile *domain.UserProfile
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NoopAttemptLimiter{}
	}
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		tx:           deps.TxManager,
		users:        deps.UserRepo,
		tokens:       deps.TokenRepo,
		sessions:     deps.SessionRepo,
		admins:       deps.AdminRepo,
		storage:      deps.Storage,
		limiter:      limiter,
		tokenMgr:     tokenMgr,
		events:       newPublisher(deps.Dispatcher, logger),
		logger:       logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		codeTTL:      cfg.Auth.CodeTTL(),
		termsVersion: cfg.App.TermsVersion,
		now:          time.Now,
		generateCode: auth.GenerateCode,
	}
}

// Register creates the account, records the terms acceptance and issues the
// activation code. The code email is sent asynchronously after commit.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if err := requireFields(map[string]string{
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"email":        in.Email,
		"password":     in.Password,
		"phone_number": in.PhoneNumber,
	}); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperrors.NewValidationError("invalid email address", map[string]any{"email": in.Email})
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": in.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
		Campus:       strings.TrimSpace(in.Campus),
	}

	var uploaded []string
	if in.Avatar != nil {
		uploaded, err = storeUploads(ctx, s.storage, storage.FolderAvatars, in.Avatar)
		if err != nil {
			return nil, err
		}
		user.AvatarKey = &uploaded[0]
	}

	var token *domain.Token
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if err := s.users.AcceptTerms(ctx, &domain.TermsAcceptance{
			UserID:  user.ID,
			Version: s.termsVersion,
		}); err != nil {
			return err
		}
		token, err = s.issueCode(ctx, user.ID, domain.TokenTypeAccountActivation)
		return err
	})
	if err != nil {
		discardUploads(ctx, s.storage, s.logger, uploaded...)
		if repository.IsUniqueViolation(err, repository.EmailConstraint) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": in.Email})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishCode(ctx, events.EventActivationCodeIssued, user, token)
	return user, nil
}

// VerifyRegistration redeems the activation code and opens the first session.
func (s *AuthService) VerifyRegistration(ctx context.Context, userID, code string) (*domain.User, error) {
	if _, err := s.redeem(ctx, userID, code, domain.TokenTypeAccountActivation); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": userID})
	}
	return user, nil
}

// SignIn checks credentials and emails a sign in code. No session is opened
// until the code is verified.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", notFoundOr(err, "account", map[string]any{"email": email})
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", apperrors.NewUnauthorized("invalid credentials")
	}

	activation, err := s.latestActivation(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if activation == nil || activation.Status != domain.TokenStatusUsed {
		// A lapsed activation code is replaced. The caller still gets 422.
		if activation == nil || activation.Status == domain.TokenStatusRevoked || activation.Expired(s.now()) {
			if err := s.reissueActivation(ctx, user); err != nil {
				return "", err
			}
		}
		return "", apperrors.NewUnverifiedAccount("account is not verified, check your email for the activation code")
	}

	var token *domain.Token
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		token, err = s.issueCode(ctx, user.ID, domain.TokenTypeLoginVerification)
		return err
	})
	if err != nil {
		return "", apperrors.MapError(err)
	}

	s.publishCode(ctx, events.EventLoginCodeIssued, user, token)
	return user.ID, nil
}

// ResendActivation emails a fresh activation code to an unverified account.
// Older unused activation codes are revoked.
func (s *AuthService) ResendActivation(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", notFoundOr(err, "account", map[string]any{"email": email})
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", apperrors.NewUnauthorized("invalid credentials")
	}

	activation, err := s.latestActivation(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if activation != nil && activation.Status == domain.TokenStatusUsed {
		return "", apperrors.NewConflict("account already verified", map[string]any{"userid": user.ID})
	}
	if err := s.reissueActivation(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// VerifyLogin redeems the sign in code, opens a session and returns the
// caller's projection with an access token.
func (s *AuthService) VerifyLogin(ctx context.Context, userID, code string) (*LoginResult, error) {
	session, err := s.redeem(ctx, userID, code, domain.TokenTypeLoginVerification)
	if err != nil {
		return nil, err
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": userID})
	}
	accessToken, expiresAt, err := s.tokenMgr.GenerateUserToken(userID, session.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Profile: profile, AccessToken: accessToken, ExpiresAt: expiresAt}, nil
}

// SignOut appends a LOGGED OUT session row. Access tokens bound to the
// previous session stop working.
func (s *AuthService) SignOut(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if err := requireFields(map[string]string{"userid": userID}); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return notFoundOr(err, "user", map[string]any{"userid": userID})
	}
	if err := s.sessions.Create(ctx, &domain.Session{UserID: userID, Status: domain.SessionLoggedOut}); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// OnSession returns the latest session row and the caller's projection.
func (s *AuthService) OnSession(ctx context.Context, userID string) (*SessionView, error) {
	userID = strings.TrimSpace(userID)
	if err := requireFields(map[string]string{"userid": userID}); err != nil {
		return nil, err
	}
	session, err := s.sessions.Latest(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "session", map[string]any{"userid": userID})
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": userID})
	}
	return &SessionView{Session: session, Profile: profile}, nil
}

// LoginAdmin authenticates a back-office operator and returns a role bearing token.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return nil, "", time.Time{}, err
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !admin.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(admin.ID, domain.SubjectTypeAdmin, &admin.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return admin, token, exp, nil
}

// issueCode revokes older unused codes of the same purpose and stores a new
// one. Must run inside a transaction.
func (s *AuthService) issueCode(ctx context.Context, userID string, tokenType domain.TokenType) (*domain.Token, error) {
	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}
	if _, err := s.tokens.RevokeUnused(ctx, userID, tokenType); err != nil {
		return nil, err
	}
	token := &domain.Token{
		UserID:    userID,
		Code:      code,
		Type:      tokenType,
		Status:    domain.TokenStatusNotUsed,
		ExpiresAt: s.now().Add(s.codeTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// redeem consumes the code scoped to (user, code, purpose) and appends a
// LOGGED IN session in the same transaction.
func (s *AuthService) redeem(ctx context.Context, userID, code string, tokenType domain.TokenType) (*domain.Session, error) {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if err := requireFields(map[string]string{"userid": userID, "code": code}); err != nil {
		return nil, err
	}

	blocked, err := s.limiter.Blocked(ctx, userID, tokenType)
	if err != nil {
		s.logger.Warn("attempt limiter unavailable", zap.Error(err))
	}
	if blocked {
		return nil, apperrors.NewTooManyAttempts("too many invalid codes, request a new one later")
	}

	session := &domain.Session{UserID: userID, Status: domain.SessionLoggedIn}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		token, err := s.tokens.FindRedeemable(ctx, userID, code, tokenType, s.now())
		if err != nil {
			return err
		}
		if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
			return err
		}
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if failErr := s.limiter.Fail(ctx, userID, tokenType); failErr != nil {
				s.logger.Warn("record failed code attempt", zap.Error(failErr))
			}
			return nil, apperrors.NewNotFound("verification code", map[string]any{"userid": userID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.limiter.Reset(ctx, userID, tokenType); err != nil {
		s.logger.Warn("reset code attempts", zap.Error(err))
	}
	return session, nil
}

func (s *AuthService) latestActivation(ctx context.Context, userID string) (*domain.Token, error) {
	token, err := s.tokens.LatestByType(ctx, userID, domain.TokenTypeAccountActivation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

func (s *AuthService) reissueActivation(ctx context.Context, user *domain.User) error {
	var token *domain.Token
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		token, err = s.issueCode(ctx, user.ID, domain.TokenTypeAccountActivation)
		return err
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	s.publishCode(ctx, events.EventActivationCodeIssued, user, token)
	return nil
}

func (s *AuthService) publishCode(ctx context.Context, eventType events.EventType, user *domain.User, token *domain.Token) {
	s.events.publishEvent(ctx, events.Event{
		Type:     eventType,
		EntityID: user.ID,
		Actor:    userActor(user.ID),
		Payload: events.CodeIssuedPayload{
			UserID:    user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			Code:      token.Code,
			ExpiresAt: token.ExpiresAt,
		},
	})
}
