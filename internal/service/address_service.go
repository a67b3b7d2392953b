package service

import (
	"context"
	"strings"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/repository"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// AddressService manages delivery addresses.
type AddressService struct {
	users     repository.UserRepository
	addresses repository.AddressRepository
}

// NewAddressService creates the service.
func NewAddressService(users repository.UserRepository, addresses repository.AddressRepository) *AddressService {
	return &AddressService{users: users, addresses: addresses}
}

// Create stores an address for the user.
func (s *AddressService) Create(ctx context.Context, address domain.Address) (*domain.Address, error) {
	address.UserID = strings.TrimSpace(address.UserID)
	address.Line1 = strings.TrimSpace(address.Line1)
	address.City = strings.TrimSpace(address.City)
	address.ContactNumber = strings.TrimSpace(address.ContactNumber)
	if err := requireFields(map[string]string{
		"userid":         address.UserID,
		"line1":          address.Line1,
		"city":           address.City,
		"contact_number": address.ContactNumber,
	}); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, address.UserID); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"userid": address.UserID})
	}
	if err := s.addresses.Create(ctx, &address); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &address, nil
}

// List returns the user's addresses, newest first.
func (s *AddressService) List(ctx context.Context, userID string) ([]domain.Address, error) {
	userID = strings.TrimSpace(userID)
	if err := requireFields(map[string]string{"userid": userID}); err != nil {
		return nil, err
	}
	addresses, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return addresses, nil
}
