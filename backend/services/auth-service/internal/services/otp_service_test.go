package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-testhelpers"
	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

const testDomain = "Example.org"

type otpFixture struct {
	codes    *testhelpers.MemOtpStore
	accounts *testhelpers.MemAccountStore
	profiles *testhelpers.MemProfileStore
	sms      *testhelpers.FakeSMSSender
	pub      *testhelpers.FakePublisher
	limits   *testhelpers.MemRateLimitStore

	mu  sync.Mutex
	now time.Time

	svc OTPService
}

func newOTPFixture(t *testing.T, limits RateLimits, opts OTPOptions) *otpFixture {
	t.Helper()
	f := &otpFixture{
		codes:    testhelpers.NewMemOtpStore(),
		accounts: testhelpers.NewMemAccountStore(),
		profiles: testhelpers.NewMemProfileStore(),
		sms:      &testhelpers.FakeSMSSender{},
		pub:      &testhelpers.FakePublisher{},
		limits:   testhelpers.NewMemRateLimitStore(),
		now:      time.Now(),
	}
	opts.Now = f.clock
	f.svc = NewOTPService(
		f.codes,
		NewAccountService(f.accounts, f.profiles, testDomain),
		f.sms,
		NewRateLimiterService(f.limits, limits),
		f.pub,
		opts,
	)
	return f
}

func (f *otpFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *otpFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// requestCode issues a code and returns what was texted.
func (f *otpFixture) requestCode(t *testing.T, phone string) string {
	t.Helper()
	require.NoError(t, f.svc.RequestCode(context.Background(), phone, "203.0.113.7"))
	code := f.sms.LastCodeTo(phone)
	require.Len(t, code, utils.OTPCodeLength)
	return code
}

func noLimits() RateLimits { return RateLimits{Window: time.Hour} }

// ---------------------------------------------------------------------
// RequestCode
// ---------------------------------------------------------------------

func TestRequestCode_StoresAndTextsCode(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()

	code := f.requestCode(t, phone)

	n, err := strconv.Atoi(code)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 100000)
	require.LessOrEqual(t, n, 999999)

	rec, err := f.codes.GetLatest(context.Background(), phone)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, code, rec.Code)
	require.False(t, rec.Verified)
	require.WithinDuration(t, f.clock().Add(defaultOTPExpiry), rec.ExpiresAt, time.Second)

	require.Equal(t, []string{RoutingKeyOTPIssued}, f.pub.RoutingKeys())
}

func TestRequestCode_RejectsInvalidPhoneBeforeSideEffects(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})

	for _, phone := range []string{"", "5551234", "+0123456789", "not-a-phone"} {
		err := f.svc.RequestCode(context.Background(), phone, "203.0.113.7")
		require.ErrorIs(t, err, utils.ErrInvalidPhone, "phone %q", phone)
	}
	require.Empty(t, f.sms.Sent())
	require.Empty(t, f.limits.Keys())
}

func TestRequestCode_SupersedesPreviousCode(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()

	// Generated codes never start with 0, so the two always differ.
	const first = "012345"
	_, err := f.codes.ReplaceCode(context.Background(), phone, first, f.clock().Add(time.Minute))
	require.NoError(t, err)

	second := f.requestCode(t, phone)
	require.Equal(t, 1, f.codes.Count(phone))

	_, err = f.svc.VerifyCode(context.Background(), phone, first, "")
	require.ErrorIs(t, err, utils.ErrInvalidOrExpiredCode)

	_, err = f.svc.VerifyCode(context.Background(), phone, second, "")
	require.NoError(t, err)
}

func TestRequestCode_SMSFailureDeletesUndeliveredCode(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	f.sms.Err = errors.New("carrier rejected")
	phone := testhelpers.UniquePhone()

	err := f.svc.RequestCode(context.Background(), phone, "203.0.113.7")
	require.ErrorIs(t, err, utils.ErrSMSDeliveryFailed)
	require.ErrorIs(t, err, utils.ErrExternalServiceFailure)
	require.Equal(t, "SMS delivery failed: carrier rejected", err.Error())

	require.Len(t, f.sms.Sent(), 1)
	require.Zero(t, f.codes.Count(phone))
	require.Empty(t, f.pub.RoutingKeys())
}

func TestRequestCode_StorageFailure(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	f.codes.Err = errors.New("connection reset")

	err := f.svc.RequestCode(context.Background(), testhelpers.UniquePhone(), "203.0.113.7")
	require.Error(t, err)
	require.NotErrorIs(t, err, utils.ErrExternalServiceFailure)
	require.Empty(t, f.sms.Sent())
}

func TestRequestCode_PerPhoneRateLimit(t *testing.T) {
	f := newOTPFixture(t, RateLimits{PerNumber: 2, Window: time.Hour}, OTPOptions{})
	phone := testhelpers.UniquePhone()

	f.requestCode(t, phone)
	f.requestCode(t, phone)

	err := f.svc.RequestCode(context.Background(), phone, "203.0.113.7")
	require.ErrorIs(t, err, utils.ErrRateLimitExceeded)
	require.Len(t, f.sms.Sent(), 2)

	// A different number is unaffected.
	f.requestCode(t, testhelpers.UniquePhone())
}

func TestRequestCode_FakePhoneSkipsSMS(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{AcceptFakePhones: true})
	phone := utils.TestPhoneNumberBase + "1234567"

	require.NoError(t, f.svc.RequestCode(context.Background(), phone, "203.0.113.7"))
	require.Empty(t, f.sms.Sent())

	res, err := f.svc.VerifyCode(context.Background(), phone, utils.TestPhoneCode, "")
	require.NoError(t, err)
	require.NotEmpty(t, res.TempPassword)
}

func TestRequestCode_FakePhoneWithoutFlagIsTexted(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := utils.TestPhoneNumberBase + "1234567"

	require.NoError(t, f.svc.RequestCode(context.Background(), phone, "203.0.113.7"))
	require.Len(t, f.sms.Sent(), 1)
}

// ---------------------------------------------------------------------
// VerifyCode
// ---------------------------------------------------------------------

func TestVerifyCode_ProvisionsNewAccount(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	res, err := f.svc.VerifyCode(context.Background(), phone, code, "  Ana López ")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, utils.PhoneDigits(phone)+"@phone.example.org", res.Email)
	require.Len(t, res.TempPassword, utils.TempPasswordLength)

	acct, err := f.accounts.GetByID(context.Background(), res.UserID)
	require.NoError(t, err)
	require.NotNil(t, acct)
	require.Equal(t, phone, acct.PhoneNumber)
	require.NotNil(t, acct.EmailConfirmedAt)
	require.Equal(t, "Ana López", utils.Val(acct.FullName))
	require.True(t, utils.CheckPasswordHash(res.TempPassword, utils.Val(acct.PasswordHash)))

	profile, err := f.profiles.GetByID(context.Background(), res.UserID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, "Ana López", utils.Val(profile.FullName))
	require.Equal(t, phone, profile.PhoneNumber)

	rec, err := f.codes.GetLatest(context.Background(), phone)
	require.NoError(t, err)
	require.True(t, rec.Verified)
	require.NotNil(t, rec.VerifiedAt)

	require.Equal(t, []string{RoutingKeyOTPIssued, RoutingKeyAccountProvisioned}, f.pub.RoutingKeys())
}

func TestVerifyCode_ReturningUserGetsFreshPassword(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()

	first, err := f.svc.VerifyCode(context.Background(), phone, f.requestCode(t, phone), "Ana")
	require.NoError(t, err)

	second, err := f.svc.VerifyCode(context.Background(), phone, f.requestCode(t, phone), "")
	require.NoError(t, err)

	require.False(t, second.Created)
	require.Equal(t, first.UserID, second.UserID)
	require.Equal(t, first.Email, second.Email)
	require.NotEqual(t, first.TempPassword, second.TempPassword)
	require.Equal(t, 1, f.accounts.Len())

	acct, err := f.accounts.GetByID(context.Background(), second.UserID)
	require.NoError(t, err)
	require.False(t, utils.CheckPasswordHash(first.TempPassword, utils.Val(acct.PasswordHash)))
	require.True(t, utils.CheckPasswordHash(second.TempPassword, utils.Val(acct.PasswordHash)))

	// An empty name keeps the stored one.
	require.Equal(t, "Ana", utils.Val(acct.FullName))
	profile, err := f.profiles.GetByID(context.Background(), second.UserID)
	require.NoError(t, err)
	require.Equal(t, "Ana", utils.Val(profile.FullName))
}

func TestVerifyCode_CodeIsSingleUse(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.NoError(t, err)

	_, err = f.svc.VerifyCode(context.Background(), phone, code, "")
	require.ErrorIs(t, err, utils.ErrInvalidOrExpiredCode)
}

func TestVerifyCode_Expiry(t *testing.T) {
	t.Run("at expiry instant is accepted", func(t *testing.T) {
		f := newOTPFixture(t, noLimits(), OTPOptions{Expiry: time.Minute})
		phone := testhelpers.UniquePhone()
		code := f.requestCode(t, phone)

		f.advance(time.Minute)
		_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
		require.NoError(t, err)
	})

	t.Run("after expiry is rejected", func(t *testing.T) {
		f := newOTPFixture(t, noLimits(), OTPOptions{Expiry: time.Minute})
		phone := testhelpers.UniquePhone()
		code := f.requestCode(t, phone)

		f.advance(time.Minute + time.Second)
		_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
		require.ErrorIs(t, err, utils.ErrInvalidOrExpiredCode)
		require.Zero(t, f.accounts.Len())
	})
}

func TestVerifyCode_RejectsBadInput(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	const wrong = "000000"

	cases := []struct {
		name  string
		phone string
		code  string
		want  error
	}{
		{"wrong code", phone, wrong, utils.ErrInvalidOrExpiredCode},
		{"short code", phone, code[:5], utils.ErrInvalidOrExpiredCode},
		{"letters", phone, "12ab56", utils.ErrInvalidOrExpiredCode},
		{"other phone", testhelpers.UniquePhone(), code, utils.ErrInvalidOrExpiredCode},
		{"bad phone", "12345", code, utils.ErrInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.VerifyCode(context.Background(), tc.phone, tc.code, "")
			require.ErrorIs(t, err, tc.want)
		})
	}

	// None of the failures burned the real code.
	_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.NoError(t, err)
}

func TestVerifyCode_AttemptCapLocksCode(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	for i := 0; i < utils.MaxOTPAttempts; i++ {
		_, err := f.svc.VerifyCode(context.Background(), phone, "000000", "")
		require.ErrorIs(t, err, utils.ErrInvalidOrExpiredCode)
	}

	_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.ErrorIs(t, err, utils.ErrInvalidOrExpiredCode)
	require.Zero(t, f.accounts.Len())

	// A fresh code starts a fresh budget.
	code = f.requestCode(t, phone)
	_, err = f.svc.VerifyCode(context.Background(), phone, code, "")
	require.NoError(t, err)
}

func TestVerifyCode_AttemptsBelowCapStillVerify(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	for i := 0; i < utils.MaxOTPAttempts-1; i++ {
		_, err := f.svc.VerifyCode(context.Background(), phone, "000000", "")
		require.ErrorIs(t, err, utils.ErrInvalidOrExpiredCode)
	}

	_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.NoError(t, err)
}

func TestVerifyCode_ConcurrentAttemptsConsumeOnce(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, utils.ErrInvalidOrExpiredCode):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, successes.Load())
	require.EqualValues(t, attempts-1, rejected.Load())
	require.Equal(t, 1, f.accounts.Len())
}

func TestVerifyCode_ProvisioningFailureRestoresCode(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	f.profiles.Err = errors.New("profiles table locked")
	_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, utils.ErrInvalidOrExpiredCode)

	rec, err := f.codes.GetLatest(context.Background(), phone)
	require.NoError(t, err)
	require.False(t, rec.Verified)
	require.Nil(t, rec.VerifiedAt)
	require.Equal(t, []string{RoutingKeyOTPIssued}, f.pub.RoutingKeys())

	// The user can retry with the same code.
	f.profiles.Err = nil
	res, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.NoError(t, err)
	require.Equal(t, 1, f.accounts.Len())
	require.False(t, res.Created)
}

func TestVerifyCode_AccountCreateFailureRestoresCode(t *testing.T) {
	f := newOTPFixture(t, noLimits(), OTPOptions{})
	phone := testhelpers.UniquePhone()
	code := f.requestCode(t, phone)

	f.accounts.CreateErr = errors.New("identity store offline")
	_, err := f.svc.VerifyCode(context.Background(), phone, code, "")
	require.Error(t, err)
	require.Zero(t, f.accounts.Len())

	rec, err := f.codes.GetLatest(context.Background(), phone)
	require.NoError(t, err)
	require.False(t, rec.Verified)
}
