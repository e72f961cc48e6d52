package security

import (
	"encoding/base32"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// OTPPeriod is the lifetime of one code bucket.
	OTPPeriod = 600 * time.Second
	OTPDigits = otp.DigitsSix
)

// OTP derives time-bucketed login codes from an email address. Nothing is
// stored: a code is valid for its own bucket and the adjacent ones, and can
// be used more than once inside that range.
type OTP struct {
	pepper string
	now    func() time.Time
}

// NewOTP returns a generator. A non-empty pepper is mixed into every
// secret; changing it invalidates all outstanding codes.
func NewOTP(pepper string) *OTP {
	return &OTP{pepper: pepper, now: time.Now}
}

// WithClock returns a copy of o that reads the time from now.
func (o *OTP) WithClock(now func() time.Time) *OTP {
	cp := *o
	cp.now = now
	return &cp
}

func (o *OTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(OTPPeriod / time.Second),
		Skew:      1,
		Digits:    OTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (o *OTP) secret(email string) string {
	key := o.pepper + strings.ToLower(strings.TrimSpace(email))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(key))
}

// Generate returns the code for email in the current bucket.
func (o *OTP) Generate(email string) (string, error) {
	return totp.GenerateCodeCustom(o.secret(email), o.now(), o.opts())
}

// Validate reports whether code was issued for email in the current bucket
// or one of its neighbours.
func (o *OTP) Validate(email, code string) bool {
	if email == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, o.secret(email), o.now(), o.opts())
	return err == nil && ok
}
