package auth

import "strings"

type StaffPermission string

const (
	PermOrders        StaffPermission = "orders"
	PermOrderVouchers StaffPermission = "order_vouchers"
)

var apiPermissionMap = map[string]StaffPermission{
	"/api/merchant/orders":            PermOrders,
	"/api/merchant/pos":               PermOrders,
	"/api/merchant/pos/vouchers":      PermOrders,
	"POST /api/merchant/pos/vouchers": PermOrderVouchers,
	"/api/merchant/order-vouchers":    PermOrderVouchers,
}

// GetPermissionForAPI picks the longest matching prefix, preferring a
// method-specific entry on ties. Nil means no permission is required.
func GetPermissionForAPI(path string, method string) *StaffPermission {
	method = strings.ToUpper(strings.TrimSpace(method))

	var bestPath string
	var bestPerm *StaffPermission
	var bestMethodSpecific bool

	for key, perm := range apiPermissionMap {
		keyPath := key
		methodSpecific := false
		if keyMethod, rest, ok := strings.Cut(key, " "); ok {
			keyPath = strings.TrimSpace(rest)
			methodSpecific = true
			if method == "" || method != strings.ToUpper(keyMethod) {
				continue
			}
		}

		if !strings.HasPrefix(path, keyPath) {
			continue
		}

		if bestPerm == nil || len(keyPath) > len(bestPath) || (len(keyPath) == len(bestPath) && methodSpecific && !bestMethodSpecific) {
			bestPath = keyPath
			bestMethodSpecific = methodSpecific
			permCopy := perm
			bestPerm = &permCopy
		}
	}

	return bestPerm
}

func HasPermission(granted []string, perm StaffPermission) bool {
	for _, p := range granted {
		if p == string(perm) {
			return true
		}
	}
	return false
}
