package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// DashboardStats are the headline numbers shown on the dashboard.
type DashboardStats struct {
	Employees        int
	PendingRequests  int
	ApprovedRequests int

	// ApprovedDays is the all-time total of approved leave days.
	ApprovedDays int

	// AverageBalance is the mean remaining balance across employees.
	AverageBalance decimal.Decimal

	// Utilization is the percentage of granted days already consumed:
	// approved / (approved + remaining). Zero when nothing was granted.
	Utilization decimal.Decimal
}

// Dashboard computes the dashboard statistics. Pure read.
func (e *Engine) Dashboard(ctx context.Context) (*DashboardStats, error) {
	employees, err := e.store.CountEmployees(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := e.store.CountRequests(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	approved, err := e.store.CountRequests(ctx, StatusApproved)
	if err != nil {
		return nil, err
	}
	approvedDays, err := e.store.SumApprovedDays(ctx)
	if err != nil {
		return nil, err
	}
	remaining, err := e.store.SumBalances(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Employees:        employees,
		PendingRequests:  pending,
		ApprovedRequests: approved,
		ApprovedDays:     approvedDays,
		AverageBalance:   decimal.Zero,
		Utilization:      decimal.Zero,
	}

	if employees > 0 {
		stats.AverageBalance = decimal.NewFromInt(int64(remaining)).
			Div(decimal.NewFromInt(int64(employees))).Round(2)
	}
	if granted := approvedDays + remaining; granted > 0 {
		stats.Utilization = decimal.NewFromInt(int64(approvedDays)).
			Div(decimal.NewFromInt(int64(granted))).
			Mul(decimal.NewFromInt(100)).Round(1)
	}

	return stats, nil
}
