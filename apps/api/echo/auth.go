package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/model"
	"github.com/trezcool/tutora/core/user"
)

var (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string     `json:"name,omitempty"`
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role,omitempty"`
}

func GetUserClaims(usr model.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  usr.Name,
		Email: usr.Email,
		Role:  usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.Service) (model.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(model.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return model.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return model.User{}, errUnauthorized
		}
		return model.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextHasAnyRole(ctx echo.Context, roles []model.Role) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			if claims.Role == role {
				return true
			}
		}
	}
	return false
}
