package vouch

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
)

// SigninCodeLength is the number of digits in a sign in code
const SigninCodeLength = 6

// SigninCodeTTL is how long a sign in code stays redeemable
var SigninCodeTTL = 10 * time.Minute

var signinCodeMax = big.NewInt(1_000_000)

// GenerateSigninCode produces a 6 digit numeric code from crypto/rand.
// Leading zeros are preserved.
func GenerateSigninCode() (string, error) {
	n, err := rand.Int(rand.Reader, signinCodeMax)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate sign in code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SigninCodeMatches compares a presented code against the stored one in
// constant time.
func SigninCodeMatches(stored, presented string) bool {
	if stored == "" || len(stored) != len(presented) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
