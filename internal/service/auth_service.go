package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/maheshrc27/reelflow/pkg/utils"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, creds *transfer.Credentials) (*models.User, error)
	Login(ctx context.Context, creds *transfer.Credentials) (*models.User, error)
}

type authService struct {
	u repository.UserRepository
}

func NewAuthService(u repository.UserRepository) AuthService {
	return &authService{u: u}
}

func (s *authService) Register(ctx context.Context, creds *transfer.Credentials) (*models.User, error) {
	if creds == nil {
		return nil, invalid("", "credentials are required")
	}
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email", "is not a valid address")
	}
	if len(creds.Password) < minPasswordLength {
		return nil, invalid("password", "must be at least 8 characters")
	}

	hash, err := utils.HashPassword(creds.Password)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: hash}
	user.ID, err = s.u.Create(ctx, nil, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, creds *transfer.Credentials) (*models.User, error) {
	if creds == nil {
		return nil, ErrUnauthorized
	}

	user, isExist, err := s.u.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		return nil, err
	}
	if !isExist || !utils.CheckPassword(creds.Password, user.PasswordHash) {
		slog.Info("login rejected")
		return nil, ErrUnauthorized
	}
	return user, nil
}
