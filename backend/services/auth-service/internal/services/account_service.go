package services

import (
	"context"
	"fmt"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-models"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// ProvisionResult is the outcome of binding a verified phone to an account.
type ProvisionResult struct {
	Account      *models.Account
	TempPassword string
	Created      bool
}

// AccountService finds or creates the single account bound to a phone
// number and rotates its temporary password.
type AccountService interface {
	ProvisionForPhone(ctx context.Context, phone, fullName string) (*ProvisionResult, error)
}

type accountService struct {
	accounts  repositories.AccountRepository
	profiles  repositories.ProfileRepository
	appDomain string
}

func NewAccountService(
	accounts repositories.AccountRepository,
	profiles repositories.ProfileRepository,
	appDomain string,
) AccountService {
	return &accountService{accounts: accounts, profiles: profiles, appDomain: appDomain}
}

func (s *accountService) ProvisionForPhone(ctx context.Context, phone, fullName string) (*ProvisionResult, error) {
	email := utils.SyntheticEmail(phone, s.appDomain)

	tempPassword, err := utils.RandomPassword(utils.TempPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("generate temp password: %w", err)
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("hash temp password: %w", err)
	}

	acct, err := s.accounts.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	created := false
	if acct == nil {
		acct, created, err = s.create(ctx, email, phone, fullName, hash)
		if err != nil {
			return nil, err
		}
	}

	if !created {
		if err := s.accounts.SetPasswordHash(ctx, acct.ID, &hash); err != nil {
			return nil, fmt.Errorf("reset password: %w", err)
		}
		acct.PasswordHash = &hash
		if fullName != "" {
			if err := s.accounts.UpdateFullName(ctx, acct.ID, fullName); err != nil {
				return nil, fmt.Errorf("update full name: %w", err)
			}
			acct.FullName = &fullName
		}
	}

	if err := s.profiles.Upsert(ctx, acct.ID, fullName, phone); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return &ProvisionResult{Account: acct, TempPassword: tempPassword, Created: created}, nil
}

// create inserts a new account. Losing a race against a concurrent
// verification for the same phone falls back to the winner's row.
func (s *accountService) create(ctx context.Context, email, phone, fullName, hash string) (*models.Account, bool, error) {
	acct := &models.Account{
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: &hash,
	}
	if fullName != "" {
		acct.FullName = &fullName
	}

	err := s.accounts.Create(ctx, acct)
	if err == nil {
		utils.Logger.WithField("user_id", acct.ID).Info("Created account for verified phone")
		return acct, true, nil
	}
	if !repositories.IsUniqueViolation(err) {
		return nil, false, fmt.Errorf("create account: %w", err)
	}

	existing, findErr := s.accounts.FindByEmailOrPhone(ctx, email, phone)
	if findErr != nil {
		return nil, false, fmt.Errorf("lookup account after conflict: %w", findErr)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("create account: %w", err)
	}
	return existing, false, nil
}
