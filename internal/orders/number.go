package orders

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"genfity-pricing-service/internal/utils"
)

const (
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberLength   = 4
	orderNumberAttempts = 10
)

// nextOrderNumber picks a short code not yet used by the merchant today in
// its own timezone. After repeated collisions it falls back to HHMM.
func (s *Service) nextOrderNumber(ctx context.Context, tx Tx, merchantID int64, timezone string, now time.Time) (string, error) {
	local := now.In(utils.LoadLocation(timezone))
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	end := start.Add(24*time.Hour - time.Millisecond)

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number := s.randomCode()
		taken, err := tx.OrderNumberTaken(ctx, merchantID, number, start, end)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return local.Format("1504"), nil
}

func (s *Service) randomCode() string {
	if s.codes != nil {
		return s.codes()
	}
	var b strings.Builder
	for i := 0; i < orderNumberLength; i++ {
		b.WriteByte(orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))])
	}
	return b.String()
}
