package database

import (
	"context"
	"database/sql"

	"revenue-svc/models"
)

// GetRevenueType loads one revenue type by its code.
func GetRevenueType(ctx context.Context, db *sql.DB, code string) (models.RevenueType, error) {
	var rt models.RevenueType
	err := db.QueryRowContext(ctx,
		"SELECT code, name, is_recurring, renewal_period_days FROM revenue_types WHERE code = $1",
		code,
	).Scan(&rt.Code, &rt.Name, &rt.IsRecurring, &rt.RenewalPeriodDays)
	if err != nil {
		return models.RevenueType{}, err
	}
	return rt, nil
}
