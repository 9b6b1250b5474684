package application

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
)

var (
	resetSalt = []byte("admissions.core.application.reset_token")
	NowFunc   = time.Now // mockable

	ErrInvalidResetToken = errors.New("the password reset link is invalid or has expired")
)

// ResetTokens makes and checks password reset tokens of applicants.
// A token signs the current password hash, so it stops working once the password changes.
type ResetTokens struct {
	key     [32]byte
	timeout time.Duration
}

func NewResetTokens(conf *core.Config) *ResetTokens {
	return &ResetTokens{
		key:     sha256.Sum256(append(append([]byte(nil), resetSalt...), conf.SecretKey...)),
		timeout: conf.PasswordResetTimeoutDelta,
	}
}

// EncodeFormID base64 encodes an application form ID for reset links.
func EncodeFormID(id int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

func decodeFormID(uid string) (int, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(b))
}

// Make generates a password reset token for the applicant of gi.
func (rt *ResetTokens) Make(gi GeneralInfo) string {
	return rt.makeWithTimestamp(gi, numDaysSince2001(NowFunc()))
}

func (rt *ResetTokens) verify(gi GeneralInfo, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidResetToken
	}
	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidResetToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidResetToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(rt.makeWithTimestamp(gi, ts)), []byte(token)) == 0 {
		return ErrInvalidResetToken
	}

	// check that the timestamp is within limit
	if numDaysSince2001(NowFunc())-ts > int(rt.timeout/(24*time.Hour)) {
		return ErrInvalidResetToken
	}
	return nil
}

func (rt *ResetTokens) makeWithTimestamp(gi GeneralInfo, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	h := hmac.New(sha256.New, rt.key[:])
	h.Write(hashValue(gi, ts))
	return fmt.Sprintf("%s-%s", tsB32, base64.RawURLEncoding.EncodeToString(h.Sum(nil)))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(gi GeneralInfo, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.Itoa(gi.ApplicationFormID))
	val.Write(gi.PasswordHash)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
