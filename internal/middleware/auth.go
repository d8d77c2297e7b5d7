package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"genfity-pricing-service/internal/auth"
	"genfity-pricing-service/internal/db"
)

type contextKey string

const (
	authContextKey     contextKey = "authContext"
	customerContextKey contextKey = "customerContext"
)

type AuthContext struct {
	UserID      int64
	SessionID   int64
	Role        auth.UserRole
	Email       string
	MerchantID  *int64
	IsOwner     bool
	Permissions []string
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

// CustomerContext is set when a storefront request carries a valid customer
// token. Checkout works without one.
type CustomerContext struct {
	CustomerID int64
	Email      string
}

func WithCustomerContext(ctx context.Context, c *CustomerContext) context.Context {
	return context.WithValue(ctx, customerContextKey, c)
}

func GetCustomerContext(ctx context.Context) (*CustomerContext, bool) {
	c, ok := ctx.Value(customerContextKey).(*CustomerContext)
	return c, ok && c != nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeAuthErrorDebug(w, status, message, "")
}

func writeAuthErrorDebug(w http.ResponseWriter, status int, message string, debug string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	payload := map[string]any{
		"success":    false,
		"error":      code,
		"message":    message,
		"statusCode": status,
	}

	if os.Getenv("APP_ENV") == "development" && strings.TrimSpace(debug) != "" {
		payload["debug"] = debug
	}

	_ = json.NewEncoder(w).Encode(payload)
}

const merchantSessionQuery = `
	select u.role, mu.permissions, mu.is_active, m.is_active, coalesce(ms.status::text, '')
	from users u
	join merchant_users mu on mu.user_id = u.id and mu.merchant_id = $2
	join merchants m on m.id = mu.merchant_id
	left join merchant_subscriptions ms on ms.merchant_id = m.id
	join user_sessions us on us.id = $3 and us.user_id = u.id and us.status = 'ACTIVE' and us.expires_at > now()
	where u.id = $1
`

func MerchantAuth(q db.Querier, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "Authorization token required", err.Error())
				return
			}

			if !claims.IsMerchant() {
				writeAuthError(w, http.StatusForbidden, "Merchant access required")
				return
			}

			merchantID, err := claims.MerchantIDValue()
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Merchant not found")
				return
			}

			userID, err := strconv.ParseInt(claims.UserID, 10, 64)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			sessionID, err := strconv.ParseInt(claims.SessionID, 10, 64)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			// Validate session + merchant link + merchant status
			var (
				role               string
				permissions        []string
				merchantActive     bool
				subscriptionStatus string
				linkActive         bool
			)
			err = q.QueryRow(r.Context(), merchantSessionQuery, userID, merchantID, sessionID).Scan(&role, &permissions, &linkActive, &merchantActive, &subscriptionStatus)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "Merchant access required", err.Error())
				return
			}

			if !linkActive {
				writeAuthError(w, http.StatusForbidden, "Merchant access is disabled")
				return
			}
			if !merchantActive {
				writeAuthError(w, http.StatusForbidden, "Merchant is currently disabled")
				return
			}
			if strings.EqualFold(subscriptionStatus, "SUSPENDED") {
				writeAuthError(w, http.StatusForbidden, "Subscription is suspended. Please renew to continue.")
				return
			}

			if claims.Role == auth.RoleMerchantStaff {
				if perm := auth.GetPermissionForAPI(r.URL.Path, r.Method); perm != nil && !auth.HasPermission(permissions, *perm) {
					writeAuthError(w, http.StatusForbidden, "You do not have permission to access this resource")
					return
				}
			}

			authCtx := &AuthContext{
				UserID:      userID,
				SessionID:   sessionID,
				Role:        claims.Role,
				Email:       claims.Email,
				MerchantID:  &merchantID,
				IsOwner:     claims.Role == auth.RoleMerchantOwner,
				Permissions: permissions,
			}

			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// OptionalCustomerAuth attaches the customer when a valid CUSTOMER token is
// present. A missing token passes through; an invalid one is rejected so a
// stale login is not silently treated as a guest.
func OptionalCustomerAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.VerifyAccessToken(auth.ParseBearerToken(header), jwtSecret)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "Invalid or expired token", err.Error())
				return
			}
			if claims.Role != auth.RoleCustomer {
				next.ServeHTTP(w, r)
				return
			}
			customerID, err := claims.CustomerIDValue()
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := WithCustomerContext(r.Context(), &CustomerContext{CustomerID: customerID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
