package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/cryptox"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/users"
)

// AccountService provisions users. Accounts are normally created outside the
// auth core; this exists for the useradd tool and for seeding tests.
type AccountService struct {
	users  users.Repository
	hasher *cryptox.Hasher
	clock  clockx.Clock
}

func NewAccountService(repo users.Repository, hasher *cryptox.Hasher, clock clockx.Clock) *AccountService {
	return &AccountService{users: repo, hasher: hasher, clock: clock}
}

// NewAccount describes a user to create.
type NewAccount struct {
	UserName    string
	DisplayName string
	UserTypes   string
	Password    []byte
}

// Create salts and hashes the password and stores an enabled user. The
// password buffer is wiped before returning.
func (s *AccountService) Create(ctx context.Context, a NewAccount) (*models.User, error) {
	defer common.WipeByteArray(a.Password)

	if a.UserName == "" {
		return nil, errors.New("username is required")
	}
	if len(a.Password) == 0 {
		return nil, errors.New("password is required")
	}

	salt, err := common.GenerateRandBytes(cryptox.MinSaltLength)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	digest, err := s.hasher.Hash(a.Password, salt)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	u, err := s.users.Create(ctx, &models.User{
		ID:           clockx.NewUUID(),
		UserName:     a.UserName,
		DisplayName:  a.DisplayName,
		UserTypes:    a.UserTypes,
		PasswordHash: digest,
		Salt:         salt,
		IsEnabled:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}
