package utils

import "time"

const (
	OrganizationName = "Puente"

	// SyntheticEmailSubdomain is the label placed in front of the app
	// domain for phone-derived account emails: <digits>@phone.<domain>.
	SyntheticEmailSubdomain = "phone"

	OTPCodeLength = 6
	OTPCodeMin    = 100000
	OTPCodeMax    = 999999

	// MaxOTPAttempts is how many verification checks one code allows,
	// counting the successful one.
	MaxOTPAttempts = 5

	// Test numbers are accepted without Twilio when the accept_fake_phones
	// flag is on; they always receive TestPhoneCode.
	TestPhoneNumberBase = "+999"
	TestPhoneCode       = "999999"

	TempPasswordLength = 32

	CORSAllowedOriginAny = "*"
)

// Outbound call ceilings shared by every service.
const (
	TwilioRequestTimeout = 10 * time.Second
	OpenAIRequestTimeout = 30 * time.Second
	HealthProbeTimeout   = 2 * time.Second
)
