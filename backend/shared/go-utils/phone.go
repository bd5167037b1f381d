package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	lookupsv2 "github.com/twilio/twilio-go/rest/lookups/v2"
)

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164

// IsE164 reports basic E.164 compliance.
func IsE164(number string) bool { return e164Regex.MatchString(number) }

// NormalizePhone strips whitespace, dashes, dots and parentheses that
// users tend to type, keeping a leading '+'.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneDigits returns only the decimal digits of a phone number.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SyntheticEmail derives the account email bound to a phone number:
// <digits>@phone.<appDomain>.
func SyntheticEmail(phone, appDomain string) string {
	return fmt.Sprintf("%s@%s.%s", PhoneDigits(phone), SyntheticEmailSubdomain, strings.ToLower(appDomain))
}

// MaskPhone keeps the last four digits for log lines.
func MaskPhone(phone string) string {
	digits := PhoneDigits(phone)
	if len(digits) <= 4 {
		return "****"
	}
	return "***" + digits[len(digits)-4:]
}

// ValidatePhoneNumber validates `number`.
//
//   - If validateWithTwilio == true and a non-nil Twilio RestClient is
//     provided, the function performs a Twilio Lookups V2 fetch.
//   - Otherwise only the E.164 shape is checked.
func ValidatePhoneNumber(
	ctx context.Context,
	number string,
	validateWithTwilio bool,
	tw *twilio.RestClient,
) (bool, error) {
	if !IsE164(number) {
		return false, nil
	}
	if !validateWithTwilio || tw == nil {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	resp, err := tw.LookupsV2.FetchPhoneNumber(number, &lookupsv2.FetchPhoneNumberParams{})
	if err != nil {
		if restErr, ok := err.(*twilioclient.TwilioRestError); ok {
			if restErr.Status == 404 {
				return false, nil
			}
			return false, fmt.Errorf("%w: twilio lookup failed: %d %s",
				ErrExternalServiceFailure, restErr.Status, restErr.Error())
		}
		return false, fmt.Errorf("%w: twilio lookup: %v", ErrExternalServiceFailure, err)
	}
	if resp != nil && resp.Valid != nil && !*resp.Valid {
		return false, nil
	}
	return true, nil
}
