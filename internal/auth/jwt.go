package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type UserRole string

const (
	RoleSuperAdmin    UserRole = "SUPER_ADMIN"
	RoleMerchantOwner UserRole = "MERCHANT_OWNER"
	RoleMerchantStaff UserRole = "MERCHANT_STAFF"
	RoleCustomer      UserRole = "CUSTOMER"
)

type Claims struct {
	UserID     string   `json:"userId"`
	SessionID  string   `json:"sessionId"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	MerchantID *string  `json:"merchantId,omitempty"`
	CustomerID *string  `json:"customerId,omitempty"`
	Name       *string  `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsMerchant() bool {
	return c.Role == RoleMerchantOwner || c.Role == RoleMerchantStaff
}

// MerchantIDValue parses the merchant id claim. Ids travel as strings since
// they are bigints on the issuing side.
func (c *Claims) MerchantIDValue() (int64, error) {
	if c.MerchantID == nil {
		return 0, errors.New("merchant id missing")
	}
	return strconv.ParseInt(strings.TrimSpace(*c.MerchantID), 10, 64)
}

func (c *Claims) CustomerIDValue() (int64, error) {
	raw := c.UserID
	if c.CustomerID != nil {
		raw = *c.CustomerID
	}
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TokenFromQuery accepts a raw token or a "Bearer <token>" value, which is
// what browsers send on websocket URLs.
func TokenFromQuery(value string) string {
	if token := ParseBearerToken(value); token != "" {
		return token
	}
	return strings.TrimSpace(value)
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}
