package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/api/dto"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/service"
)

// AccountService is the registration and sign in workflow.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	VerifyRegistration(ctx context.Context, userID, code string) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	ResendActivation(ctx context.Context, email, password string) (string, error)
	VerifyLogin(ctx context.Context, userID, code string) (*service.LoginResult, error)
	SignOut(ctx context.Context, userID string) error
	OnSession(ctx context.Context, userID string) (*service.SessionView, error)
	LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, string, time.Time, error)
}

// UsersHandler exposes auth endpoints for members.
type UsersHandler struct {
	auth AccountService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService AccountService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/auth/register (multipart, optional avatar).
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	avatar, closeAvatar, err := formUpload(c, "avatar")
	if err != nil {
		return err
	}
	defer closeAvatar()

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Campus:      req.Campus,
		Avatar:      avatar,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "account created, check your email for the activation code",
		"data":    dto.UserIDResponse{UserID: user.ID},
	})
}

// Verify handles POST /api/auth/verify.
func (h *UsersHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.VerifyRegistration(c.UserContext(), req.UserID, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "account activated",
		"data":    dto.NewUserResponse(user),
	})
}

// SignIn handles POST /api/auth/signin. The login code is emailed.
func (h *UsersHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "a sign in code was sent to your email",
		"data":    dto.UserIDResponse{UserID: userID},
	})
}

// ResendActivation handles POST /api/auth/resend-activation.
func (h *UsersHandler) ResendActivation(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := h.auth.ResendActivation(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "a new activation code was sent to your email",
		"data":    dto.UserIDResponse{UserID: userID},
	})
}

// VerifyToken handles POST /api/auth/verify-token.
func (h *UsersHandler) VerifyToken(c *fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.auth.VerifyLogin(c.UserContext(), req.UserID, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "signed in",
		"data": dto.LoginResponse{
			Profile: dto.NewProfileResponse(result.Profile),
			Auth:    dto.AuthResponse{Token: result.AccessToken, ExpiresAt: result.ExpiresAt},
		},
	})
}

// SignOut handles POST /api/auth/signout.
func (h *UsersHandler) SignOut(c *fiber.Ctx) error {
	var req dto.UserIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	if err := h.auth.SignOut(c.UserContext(), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "signed out"})
}

// OnSession handles POST /api/auth/onsession.
func (h *UsersHandler) OnSession(c *fiber.Ctx) error {
	var req dto.UserIDRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	view, err := h.auth.OnSession(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(view.Session, view.Profile)})
}

// AdminLogin handles POST /api/admin/login.
func (h *UsersHandler) AdminLogin(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, token, exp, err := h.auth.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin": dto.AdminResponse{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: admin.Role},
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
