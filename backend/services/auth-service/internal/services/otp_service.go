package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-repositories"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

// ---------------------------------------------------------------------
// OTPService interface
// ---------------------------------------------------------------------

type OTPService interface {
	// RequestCode issues a fresh code for phone, superseding any earlier
	// one, and texts it. The code is never returned.
	RequestCode(ctx context.Context, phone, clientIP string) error
	// VerifyCode consumes the code and provisions the phone's account.
	VerifyCode(ctx context.Context, phone, code, fullName string) (*VerifyResult, error)
}

// VerifyResult is handed to the client for an immediate password sign-in.
type VerifyResult struct {
	UserID       uuid.UUID
	Email        string
	TempPassword string
	Created      bool
}

// OTPOptions tunes the issuer. Zero values fall back to defaults.
type OTPOptions struct {
	Expiry             time.Duration
	AcceptFakePhones   bool
	ValidateWithTwilio bool
	Twilio             *twilio.RestClient
	Now                func() time.Time
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

const defaultOTPExpiry = 10 * time.Minute

var sixDigits = regexp.MustCompile(`^\d{6}$`)

type otpService struct {
	codes     repositories.OtpCodeRepository
	accounts  AccountService
	sms       SMSSender
	limiter   RateLimiterService
	publisher EventPublisher
	opts      OTPOptions
}

func NewOTPService(
	codes repositories.OtpCodeRepository,
	accounts AccountService,
	sms SMSSender,
	limiter RateLimiterService,
	publisher EventPublisher,
	opts OTPOptions,
) OTPService {
	if opts.Expiry <= 0 {
		opts.Expiry = defaultOTPExpiry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &otpService{
		codes:     codes,
		accounts:  accounts,
		sms:       sms,
		limiter:   limiter,
		publisher: publisher,
		opts:      opts,
	}
}

// ---------------------------------------------------------------------
// RequestCode
// ---------------------------------------------------------------------
func (s *otpService) RequestCode(ctx context.Context, phone, clientIP string) error {
	phone = utils.NormalizePhone(phone)
	if !utils.IsE164(phone) {
		return utils.ErrInvalidPhone
	}

	if s.limiter != nil {
		if err := s.limiter.CheckOTPRateLimits(ctx, clientIP, phone); err != nil {
			return err
		}
	}

	fake := s.isFakePhone(phone)
	if !fake {
		ok, err := utils.ValidatePhoneNumber(ctx, phone, s.opts.ValidateWithTwilio, s.opts.Twilio)
		if err != nil {
			return err
		}
		if !ok {
			return utils.ErrInvalidPhone
		}
	}

	code := utils.TestPhoneCode
	if !fake {
		var err error
		if code, err = utils.RandomOTPCode(); err != nil {
			return fmt.Errorf("generate otp: %w", err)
		}
	}

	expiresAt := s.opts.Now().Add(s.opts.Expiry)
	rec, err := s.codes.ReplaceCode(ctx, phone, code, expiresAt)
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if fake {
		utils.Logger.Debugf("Issued test code for %s without SMS", utils.MaskPhone(phone))
		return nil
	}

	if sendErr := s.sms.Send(ctx, phone, s.messageBody(code)); sendErr != nil {
		utils.Logger.WithError(sendErr).Errorf("Failed to send OTP SMS to %s", utils.MaskPhone(phone))
		// An undelivered code must not stay live.
		if delErr := s.codes.DeleteCode(context.WithoutCancel(ctx), rec.ID); delErr != nil {
			utils.Logger.WithError(delErr).Error("Failed to roll back undelivered OTP")
		}
		return fmt.Errorf("%w: %v", utils.ErrSMSDeliveryFailed, sendErr)
	}

	publishBestEffort(ctx, s.publisher, RoutingKeyOTPIssued, OTPIssuedEvent{
		Phone:     phone,
		ExpiresAt: expiresAt,
	})
	utils.Logger.Infof("OTP issued for %s", utils.MaskPhone(phone))
	return nil
}

func (s *otpService) messageBody(code string) string {
	minutes := int(s.opts.Expiry.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Tu código de verificación de %s es: %s. Expira en %d minutos.",
		utils.OrganizationName, code, minutes)
}

func (s *otpService) isFakePhone(phone string) bool {
	return s.opts.AcceptFakePhones && strings.HasPrefix(phone, utils.TestPhoneNumberBase)
}

// ---------------------------------------------------------------------
// VerifyCode
// ---------------------------------------------------------------------
func (s *otpService) VerifyCode(ctx context.Context, phone, code, fullName string) (*VerifyResult, error) {
	phone = utils.NormalizePhone(phone)
	if !utils.IsE164(phone) {
		return nil, utils.ErrInvalidPhone
	}
	code = strings.TrimSpace(code)
	if !sixDigits.MatchString(code) {
		return nil, utils.ErrInvalidOrExpiredCode
	}
	fullName = strings.TrimSpace(fullName)

	rec, err := s.codes.ConsumeCode(ctx, phone, code, s.opts.Now())
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.ProvisionForPhone(ctx, phone, fullName)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Account provisioning failed for %s; restoring code", utils.MaskPhone(phone))
		if revErr := s.codes.RevertConsume(context.WithoutCancel(ctx), rec.ID); revErr != nil {
			utils.Logger.WithError(revErr).Error("Failed to restore consumed OTP after provisioning failure")
		}
		return nil, fmt.Errorf("provision account: %w", err)
	}

	publishBestEffort(ctx, s.publisher, RoutingKeyAccountProvisioned, AccountProvisionedEvent{
		UserID:  res.Account.ID.String(),
		Phone:   phone,
		Created: res.Created,
	})

	return &VerifyResult{
		UserID:       res.Account.ID,
		Email:        res.Account.Email,
		TempPassword: res.TempPassword,
		Created:      res.Created,
	}, nil
}
