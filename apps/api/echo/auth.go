package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/application"
)

const (
	contextClaimsKey = "applicantClaims"
	bearerPrefix     = "Bearer "
)

var errNoClaims = errors.New("no applicant claims in context")

// Claims represents the authorization claims of a logged-in applicant.
type Claims struct {
	jwt.RegisteredClaims
	FormID      int    `json:"form_id"`
	AdmissionID int    `json:"admission_id"`
	Mobile      string `json:"mobile"`
}

type authenticator struct {
	issuer string
	secret []byte
	expiry time.Duration
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		issuer: conf.AppName,
		secret: []byte(conf.SecretKey),
		expiry: conf.Server.JWTExpirationDelta,
	}
}

func (a *authenticator) claimsFor(res application.LoginResult) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   strconv.Itoa(res.Form.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
		FormID:      res.Form.ID,
		AdmissionID: res.Form.AdmissionID,
		Mobile:      res.GeneralInfo.Mobile,
	}
}

// GenerateToken generates a signed JWT token string representing the applicant Claims.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.secret)
	return ss, errors.Wrap(err, "signing token")
}

func (a *authenticator) parse(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// middleware rejects requests without a valid applicant token and stores its Claims in the context.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(auth) <= len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
				return errJWTMissing
			}
			claims, err := a.parse(auth[len(bearerPrefix):])
			if err != nil {
				return errJWTInvalid(err)
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errNoClaims
}
