package merchant

import (
	"context"
	"errors"
	"strings"

	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type Loader interface {
	Load(ctx context.Context, merchantID int64) (*Config, error)
	LoadByCode(ctx context.Context, code string) (*Config, error)
}

type PGLoader struct {
	DB db.Querier
	// Timezone is used for merchants without one on record.
	Timezone string
}

const merchantColumns = `
	id, code, name, currency, timezone, is_active, is_scheduled_order_enabled, features,
	enable_tax, tax_percentage, enable_service_charge, service_charge_percent,
	enable_packaging_fee, packaging_fee_amount,
	stock_alert_enabled, default_low_stock_threshold, require_table_number_for_dine_in`

func (l PGLoader) Load(ctx context.Context, merchantID int64) (*Config, error) {
	return l.scan(l.DB.QueryRow(ctx, `select `+merchantColumns+` from merchants where id = $1`, merchantID))
}

func (l PGLoader) LoadByCode(ctx context.Context, code string) (*Config, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, notFound()
	}
	return l.scan(l.DB.QueryRow(ctx, `select `+merchantColumns+` from merchants where code = $1`, code))
}

func (l PGLoader) scan(row pgx.Row) (*Config, error) {
	var (
		cfg            Config
		currency       pgtype.Text
		timezone       pgtype.Text
		scheduled      pgtype.Bool
		features       []byte
		enableTax      pgtype.Bool
		taxPercent     pgtype.Numeric
		enableService  pgtype.Bool
		servicePercent pgtype.Numeric
		enablePackage  pgtype.Bool
		packagingFee   pgtype.Numeric
		stockAlert     pgtype.Bool
		lowThreshold   pgtype.Int4
		requireTable   pgtype.Bool
	)
	err := row.Scan(
		&cfg.ID, &cfg.Code, &cfg.Name, &currency, &timezone, &cfg.IsActive, &scheduled, &features,
		&enableTax, &taxPercent, &enableService, &servicePercent,
		&enablePackage, &packagingFee,
		&stockAlert, &lowThreshold, &requireTable,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, err
	}

	cfg.Currency = currency.String
	cfg.Timezone = timezone.String
	cfg.ScheduledOrdersEnabled = scheduled.Valid && scheduled.Bool
	cfg.EnableTax = enableTax.Valid && enableTax.Bool
	cfg.TaxPercentage = utils.NumericToFloat64(taxPercent)
	cfg.EnableServiceCharge = enableService.Valid && enableService.Bool
	cfg.ServiceChargePercent = utils.NumericToFloat64(servicePercent)
	cfg.EnablePackagingFee = enablePackage.Valid && enablePackage.Bool
	cfg.PackagingFeeAmount = utils.NumericToFloat64(packagingFee)
	cfg.StockAlertEnabled = stockAlert.Valid && stockAlert.Bool
	if lowThreshold.Valid {
		v := lowThreshold.Int32
		cfg.DefaultLowStockThreshold = &v
	}
	cfg.RequireTableNumberForDineIn = requireTable.Valid && requireTable.Bool

	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = strings.TrimSpace(l.Timezone)
	}
	normalize(&cfg, features)
	return &cfg, nil
}
