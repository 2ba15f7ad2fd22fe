package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// AccountKey is the echo context key holding the verified *AccountClaims.
const AccountKey = "account"

// AccountClaims are the claims the contract stub signs into its tokens.
type AccountClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth rejects requests without a valid HS256 bearer token and stores the
// decoded claims under AccountKey.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(jwtSecret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &AccountClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(AccountKey, claims)
			return next(c)
		}
	}
}

// AccountFrom returns the claims Auth verified, or nil outside an Auth route.
func AccountFrom(c echo.Context) *AccountClaims {
	claims, _ := c.Get(AccountKey).(*AccountClaims)
	return claims
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}
