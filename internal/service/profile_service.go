package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ProfileStore is the persistence behind the profile page
type ProfileStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

// ProfileInput is the editable part of a user document
type ProfileInput struct {
	Name    string       `json:"name" validate:"required,max=100"`
	Email   string       `json:"email" validate:"required,email"`
	Phone   string       `json:"phone" validate:"max=30"`
	Address AddressInput `json:"address"`
}

// AddressInput is the default delivery address. Every part is optional.
type AddressInput struct {
	Street string `json:"street" validate:"max=200"`
	City   string `json:"city" validate:"max=100"`
	State  string `json:"state" validate:"max=100"`
	Zip    string `json:"zip" validate:"max=20"`
}

// ProfileService reads and edits user profiles
type ProfileService struct {
	store  ProfileStore
	logger *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// GetProfile returns the user document of userID
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.GetProfile")
	defer span.End()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return user, nil
}

// UpdateProfile validates in and saves it over the profile of userID
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UpdateProfile")
	defer span.End()

	in = in.trimmed()
	fields, err := util.ValidateStruct(in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Subject: "profile", Fields: fields}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	user.Name = in.Name
	user.Email = in.Email
	user.Phone = in.Phone
	user.Address = models.Address{
		Street: in.Address.Street,
		City:   in.Address.City,
		State:  in.Address.State,
		Zip:    in.Address.Zip,
	}

	if err := s.store.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("Profile updated", zap.String("user_id", userID))
	return user, nil
}

func (in ProfileInput) trimmed() ProfileInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address.Street = strings.TrimSpace(in.Address.Street)
	in.Address.City = strings.TrimSpace(in.Address.City)
	in.Address.State = strings.TrimSpace(in.Address.State)
	in.Address.Zip = strings.TrimSpace(in.Address.Zip)
	return in
}
