package user

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

	"github.com/trezcool/tutora/core/model"
)

var (
	salt = []byte("tutora.core.user.token_gen")

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator makes and checks password reset tokens.
// A token is bound to the user's current password hash, so it dies once used.
type tokenGenerator struct {
	secretKey []byte
	timeout   time.Duration
	now       func() time.Time
}

// encodeUID base64 encodes given User ID
func encodeUID(usr model.User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeToken generates a password reset token for a given User.
func (g tokenGenerator) makeToken(usr model.User) string {
	return g.makeTokenWithTimestamp(usr, numDaysSince2001(g.now()))
}

// verifyToken checks that a password reset token for a given User is valid.
func (g tokenGenerator) verifyToken(usr model.User, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(g.makeTokenWithTimestamp(usr, ts)), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(g.now()) - ts) > int(g.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) makeTokenWithTimestamp(usr model.User, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, g.sign(hashValue(usr, ts)))
}

func (g tokenGenerator) sign(val []byte) string {
	key := sha256.Sum256(append(append([]byte{}, salt...), g.secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr model.User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	val.WriteString(usr.Email)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
