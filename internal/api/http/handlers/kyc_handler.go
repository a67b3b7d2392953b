package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-market/backend/internal/api/dto"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/service"
)

// KYCService is the identity review workflow.
type KYCService interface {
	Submit(ctx context.Context, in service.KYCSubmitInput) (*domain.UserProfile, error)
	ListPending(ctx context.Context) ([]domain.PendingKYC, error)
	Decide(ctx context.Context, kycID, rawStatus, adminID string) (*domain.KYC, error)
}

// KYCHandler exposes submission and review endpoints.
type KYCHandler struct {
	kyc KYCService
}

// NewKYCHandler constructs handler.
func NewKYCHandler(kycService KYCService) *KYCHandler {
	return &KYCHandler{kyc: kycService}
}

// Submit handles POST /api/kyc/submit (multipart front and back images).
func (h *KYCHandler) Submit(c *fiber.Ctx) error {
	var req dto.KYCSubmitRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	userID, err := memberID(c, req.UserID)
	if err != nil {
		return err
	}
	front, closeFront, err := formUpload(c, "front")
	if err != nil {
		return err
	}
	defer closeFront()
	back, closeBack, err := formUpload(c, "back")
	if err != nil {
		return err
	}
	defer closeBack()

	profile, err := h.kyc.Submit(c.UserContext(), service.KYCSubmitInput{
		UserID:        userID,
		ApplicantType: req.ApplicantType,
		IDNumber:      req.IDNumber,
		IDType:        req.IDType,
		Front:         front,
		Back:          back,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "submitted for review",
		"data":    dto.NewProfileResponse(profile),
	})
}

// Show handles POST /api/kyc/show.
func (h *KYCHandler) Show(c *fiber.Ctx) error {
	pending, err := h.kyc.ListPending(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PendingKYCResponse, 0, len(pending))
	for i := range pending {
		items = append(items, dto.PendingKYCResponse{
			KYCResponse: dto.NewKYCResponse(&pending[i].KYC),
			User:        dto.NewUserResponse(&pending[i].User),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Process handles POST /api/kyc/process.
func (h *KYCHandler) Process(c *fiber.Ctx) error {
	var req dto.KYCProcessRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := adminPrincipal(c, req.AdminID)
	if err != nil {
		return err
	}
	decided, err := h.kyc.Decide(c.UserContext(), req.KYCID, req.Status, admin.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "decision recorded",
		"data":    dto.NewKYCResponse(decided),
	})
}
