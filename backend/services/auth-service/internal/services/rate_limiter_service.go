package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/services/auth-service/internal/config"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// RateLimiterService guards the OTP issuer against SMS pumping.
type RateLimiterService interface {
	CheckOTPRateLimits(ctx context.Context, ip, phoneNumber string) error
}

// RateLimits are the per-window ceilings applied to OTP requests.
type RateLimits struct {
	Global    int
	PerIP     int
	PerNumber int
	Window    time.Duration
}

// RateLimitsFromConfig reads the SMS ceilings out of cfg.
func RateLimitsFromConfig(cfg *config.Config) RateLimits {
	return RateLimits{
		Global:    cfg.GlobalSMSLimitPerHour,
		PerIP:     cfg.SMSLimitPerIPPerHour,
		PerNumber: cfg.SMSLimitPerNumberPerHour,
		Window:    cfg.RateLimitWindow,
	}
}

type rateLimiterService struct {
	repo   repositories.RateLimitRepository
	limits RateLimits
}

func NewRateLimiterService(repo repositories.RateLimitRepository, limits RateLimits) RateLimiterService {
	return &rateLimiterService{repo: repo, limits: limits}
}

// CheckOTPRateLimits checks global, per-IP and per-phone-number limits, in
// that order. The first exceeded limit wins.
func (s *rateLimiterService) CheckOTPRateLimits(ctx context.Context, ip, phoneNumber string) error {
	checks := []struct {
		key   string
		limit int
		scope string
	}{
		{"otp:global", s.limits.Global, "Global"},
		{fmt.Sprintf("otp:ip:%s", ip), s.limits.PerIP, "Per-IP"},
		{fmt.Sprintf("otp:phone:%s", phoneNumber), s.limits.PerNumber, "Per-phone"},
	}

	for _, c := range checks {
		if c.limit <= 0 {
			continue
		}
		allowed, err := s.repo.IncrementAndCheck(ctx, c.key, c.limit, s.limits.Window)
		if err != nil {
			return err
		}
		if !allowed {
			utils.Logger.Warnf("%s OTP rate limit exceeded (scope: %s)", c.scope, scopeLabel(c.key, phoneNumber))
			return utils.ErrRateLimitExceeded
		}
	}
	return nil
}

// scopeLabel masks the phone number in per-phone keys before logging.
func scopeLabel(key, phone string) string {
	if phone != "" && key == "otp:phone:"+phone {
		return "otp:phone:" + utils.MaskPhone(phone)
	}
	return key
}
