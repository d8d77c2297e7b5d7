package voucher

import (
	"time"

	"genfity-pricing-service/internal/utils"
)

func assertSchedule(template *Template, now time.Time, timezone string) error {
	if template.ValidFrom != nil && now.Before(*template.ValidFrom) {
		return ValidationError(ErrVoucherNotActiveYet, "Voucher is not active yet", map[string]any{"validFrom": *template.ValidFrom})
	}
	if template.ValidUntil != nil && now.After(*template.ValidUntil) {
		return ValidationError(ErrVoucherExpired, "Voucher has expired", map[string]any{"validUntil": *template.ValidUntil})
	}

	local := now.In(utils.LoadLocation(timezone))

	if len(template.DaysOfWeek) > 0 {
		today := int(local.Weekday())
		allowed := false
		for _, d := range template.DaysOfWeek {
			if d == today {
				allowed = true
				break
			}
		}
		if !allowed {
			return ValidationError(ErrVoucherNotAvailableToday, "Voucher is not available today", map[string]any{
				"daysOfWeek": template.DaysOfWeek,
				"today":      today,
			})
		}
	}

	if template.StartTime != nil && template.EndTime != nil {
		if !utils.IsValidHHMM(*template.StartTime) || !utils.IsValidHHMM(*template.EndTime) {
			return ValidationError(ErrVoucherScheduleInvalid, "Voucher schedule is invalid", nil)
		}
		clock := local.Format("15:04")
		if !isTimeWithinWindow(clock, *template.StartTime, *template.EndTime) {
			return ValidationError(ErrVoucherNotAvailableNow, "Voucher is not available at this time", map[string]any{
				"startTime": *template.StartTime,
				"endTime":   *template.EndTime,
				"now":       clock,
			})
		}
	}
	return nil
}

func assertCodeWindow(code *Code, now time.Time) error {
	if !code.IsActive {
		return ValidationError(ErrVoucherInactive, "Voucher is inactive", nil)
	}
	if code.ValidFrom != nil && now.Before(*code.ValidFrom) {
		return ValidationError(ErrVoucherNotActiveYet, "Voucher is not active yet", map[string]any{"validFrom": *code.ValidFrom})
	}
	if code.ValidUntil != nil && now.After(*code.ValidUntil) {
		return ValidationError(ErrVoucherExpired, "Voucher has expired", map[string]any{"validUntil": *code.ValidUntil})
	}
	return nil
}

func assertOrderType(template *Template, orderType string) error {
	if len(template.AllowedOrderTypes) == 0 {
		return nil
	}
	for _, t := range template.AllowedOrderTypes {
		if t == orderType {
			return nil
		}
	}
	return ValidationError(ErrVoucherOrderTypeNotAllowed, "Voucher is not applicable for this order type", map[string]any{
		"orderType":         orderType,
		"allowedOrderTypes": template.AllowedOrderTypes,
	})
}

// isTimeWithinWindow compares HH:MM strings. start == end means all day and
// start > end wraps past midnight.
func isTimeWithinWindow(now string, start string, end string) bool {
	if start == end {
		return true
	}
	if start < end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}
