package services

import (
	"context"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// OTPCleanupService prunes expired and long-consumed codes.
type OTPCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type otpCleanupService struct {
	repo repositories.OtpCodeRepository
}

func NewOTPCleanupService(repo repositories.OtpCodeRepository) OTPCleanupService {
	return &otpCleanupService{repo: repo}
}

func (s *otpCleanupService) CleanupDaily(ctx context.Context) error {
	n, err := s.repo.CleanupExpired(ctx)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired otp_codes")
		return err
	}
	utils.Logger.WithField("deleted", n).Info("Daily OTP cleanup completed successfully.")
	return nil
}
