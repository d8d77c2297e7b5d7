package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyAccessToken(t *testing.T) {
	merchantID := "12"
	token := sign(t, "s3cret", Claims{
		UserID:           "7",
		Role:             RoleMerchantStaff,
		MerchantID:       &merchantID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	claims, err := VerifyAccessToken(token, "s3cret")
	require.NoError(t, err)
	assert.True(t, claims.IsMerchant())
	id, err := claims.MerchantIDValue()
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = VerifyAccessToken(token, "other")
	assert.Error(t, err)
	_, err = VerifyAccessToken("", "s3cret")
	assert.Error(t, err)
}

func TestVerifyAccessTokenRequiresExpiry(t *testing.T) {
	token := sign(t, "s3cret", Claims{UserID: "7", Role: RoleCustomer})
	_, err := VerifyAccessToken(token, "s3cret")
	assert.Error(t, err)
}

func TestCustomerIDValue(t *testing.T) {
	customerID := "99"
	c := &Claims{UserID: "5"}
	id, err := c.CustomerIDValue()
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	c.CustomerID = &customerID
	id, err = c.CustomerIDValue()
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestTokenParsing(t *testing.T) {
	assert.Equal(t, "abc", ParseBearerToken("Bearer abc"))
	assert.Equal(t, "", ParseBearerToken("abc"))
	assert.Equal(t, "abc", TokenFromQuery("abc"))
	assert.Equal(t, "abc", TokenFromQuery("bearer abc"))
}

func TestGetPermissionForAPI(t *testing.T) {
	tests := []struct {
		path   string
		method string
		want   *StaffPermission
	}{
		{"/api/merchant/pos/orders/5", "PUT", ptr(PermOrders)},
		{"/api/merchant/orders/5/receipt", "GET", ptr(PermOrders)},
		{"/api/merchant/pos/vouchers/validate", "POST", ptr(PermOrderVouchers)},
		{"/api/merchant/pos/vouchers/validate", "GET", ptr(PermOrders)},
		{"/api/merchant/profile", "GET", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, GetPermissionForAPI(tt.path, tt.method))
		})
	}
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission([]string{"menu", "orders"}, PermOrders))
	assert.False(t, HasPermission(nil, PermOrders))
}

func ptr(p StaffPermission) *StaffPermission { return &p }
