package user

import (
	"testing"
	"time"

	"github.com/trezcool/tutora/core/model"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := tokenGenerator{
		secretKey: []byte("secret"),
		timeout:   3 * 24 * time.Hour,
		now:       time.Now,
	}

	hash, _ := HashPassword("pwd")
	usr := model.User{ID: "9c4a5a3e", Name: "T", Email: "t@test.test", Role: model.RoleStudent, PasswordHash: hash}

	validToken := gen.makeToken(usr)

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	expiredGen := gen
	expiredGen.now = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := expiredGen.makeToken(usr)

	// a token is invalidated by a password change
	changedUsr := usr
	changedUsr.PasswordHash, _ = HashPassword("pwd2")

	otherKey := gen
	otherKey.secretKey = []byte("other")

	tests := []struct {
		name    string
		gen     tokenGenerator
		usr     model.User
		token   string
		wantErr error
	}{
		{name: "no token", gen: gen, usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", gen: gen, usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", gen: gen, usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", gen: gen, usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", gen: gen, usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", gen: gen, usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", gen: gen, usr: changedUsr, token: validToken, wantErr: errInvalidToken},
		{name: "other secret", gen: otherKey, usr: usr, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", gen: gen, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.gen.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := model.User{ID: "2f1e7c2a-4b5d-4f0e-9a57-1c3f1a0b9d11"}
	id, err := decodeUID(encodeUID(usr))
	if err != nil || id != usr.ID {
		t.Errorf("decodeUID(encodeUID()) = %q, %v; want %q", id, err, usr.ID)
	}
	if _, err := decodeUID("%%%"); err == nil {
		t.Error("decodeUID() failed! want error on garbage")
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdefg123", want: pwdComplexityTag},
		{name: "no upper", pwd: "abcdefg12!", want: pwdComplexityTag},
		{name: "similar to name", pwd: "Lovelace1!", attrs: []string{"Ada Lovelace", "ada@tutora.test"}, want: pwdAttrSimTag},
		{name: "common", pwd: "Password123!", want: pwdNoCommonTag},
		{name: "valid", pwd: "Gr8-Kangaroo!", attrs: []string{"Ada Lovelace", "ada@tutora.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.pwd, tt.attrs...); got != tt.want {
				t.Errorf("checkPassword(%q) = %q; want %q", tt.pwd, got, tt.want)
			}
		})
	}
}
