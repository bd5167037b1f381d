// go-utils/random.go

package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// RandomCode returns a uniformly distributed integer in [min, max] from
// crypto/rand, formatted as a decimal string.
func RandomCode(min, max int64) (string, error) {
	if max < min {
		return "", fmt.Errorf("invalid code range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+min), nil
}

// RandomOTPCode returns a six digit code in [100000, 999999].
func RandomOTPCode() (string, error) {
	return RandomCode(OTPCodeMin, OTPCodeMax)
}

// RandomPassword returns a URL-safe random secret of exactly length chars.
func RandomPassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid password length %d", length)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
