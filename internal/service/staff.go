package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
)

const minPasswordLength = 8

type StaffService struct {
	staff  repository.StaffRepository
	logger *zap.SugaredLogger
}

func NewStaffService(staff repository.StaffRepository, logger *zap.SugaredLogger) *StaffService {
	return &StaffService{staff: staff, logger: logger}
}

func (s *StaffService) Create(ctx context.Context, email, name, password string, role models.Role) (*models.Staff, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return nil, invalidInput("password must be at least %d characters", minPasswordLength)
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, invalidInput("%v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	st := &models.Staff{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.staff.Create(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}
	s.logger.Infow("staff account created", "staff_id", st.ID.Hex(), "role", st.Role)
	return st, nil
}

// Authenticate returns the active staff account matching the credentials.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *StaffService) Authenticate(ctx context.Context, email, password string) (*models.Staff, error) {
	st, err := s.staff.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if !st.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return st, nil
}
