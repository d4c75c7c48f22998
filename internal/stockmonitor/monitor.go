// Package stockmonitor sweeps the catalog for active parts at or below their
// minimum stock level and alerts every administrator.
package stockmonitor

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"tirehub/internal/domain"
	"tirehub/internal/domain/notifications"
	"tirehub/internal/logger"
)

// LastRunKey is the settings key holding the time of the last completed sweep
const LastRunKey = "low_stock_last_run"

// PartSource lists active parts that are low on stock
type PartSource interface {
	ListActiveLowStock(ctx context.Context) ([]domain.Part, error)
}

// AdminDirectory lists users by role
type AdminDirectory interface {
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

// RunRecorder stores the last run timestamp
type RunRecorder interface {
	Set(ctx context.Context, key, value string) error
}

// Report summarizes one sweep
type Report struct {
	RanAt      time.Time     `json:"ran_at"`
	Parts      []domain.Part `json:"parts"`
	Recipients int           `json:"recipients"`
	Notified   bool          `json:"notified"`
}

type Monitor struct {
	parts    PartSource
	users    AdminDirectory
	settings RunRecorder
	notifier notifications.Notifier
	now      func() time.Time
}

// New builds a monitor. settings may be nil.
func New(parts PartSource, users AdminDirectory, settings RunRecorder, notifier notifications.Notifier) *Monitor {
	return &Monitor{
		parts:    parts,
		users:    users,
		settings: settings,
		notifier: notifier,
		now:      time.Now,
	}
}

// Run performs one sweep. Finding nothing is a success without notification.
// Low-stock parts without any admin to notify yield domain.ErrNoAdmins.
// Every run that finds parts re-sends the alert.
func (m *Monitor) Run(ctx context.Context) (*Report, error) {
	const op = "stockmonitor.Monitor.Run"

	report := &Report{RanAt: m.now(), Parts: []domain.Part{}}

	parts, err := m.parts.ListActiveLowStock(ctx)
	if err != nil {
		logger.Error(ctx, "list low stock parts", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(parts) == 0 {
		logger.Info(ctx, "no low stock parts")
		m.recordRun(ctx, report.RanAt)
		return report, nil
	}
	report.Parts = parts

	for _, p := range parts {
		logger.Warn(ctx, "low stock",
			logger.String("name", p.Name),
			logger.String("sku", p.SKU),
			logger.Int("stock_quantity", p.StockQuantity),
			logger.Int("min_stock_level", p.MinStockLevel))
	}

	admins, err := m.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		logger.Error(ctx, "list admins", logger.ErrorF(err))
		return report, fmt.Errorf("%s: %w", op, err)
	}
	if len(admins) == 0 {
		logger.Error(ctx, "no admin users to notify", logger.Int("low_stock_parts", len(parts)))
		return report, fmt.Errorf("%s: %w", op, domain.ErrNoAdmins)
	}
	report.Recipients = len(admins)

	alert := notifications.LowStockAlert{GeneratedAt: report.RanAt, Parts: parts}
	if err := m.notifier.SendLowStockAlert(ctx, admins, alert); err != nil {
		logger.Error(ctx, "send low stock alert", logger.ErrorF(err))
		return report, fmt.Errorf("%s: %w", op, err)
	}
	report.Notified = true

	logger.Info(ctx, "low stock alert sent",
		logger.Int("low_stock_parts", len(parts)),
		logger.Any("recipients", lo.Map(admins, func(u domain.User, _ int) int64 { return u.ID })))
	m.recordRun(ctx, report.RanAt)
	return report, nil
}

func (m *Monitor) recordRun(ctx context.Context, at time.Time) {
	if m.settings == nil {
		return
	}
	if err := m.settings.Set(ctx, LastRunKey, at.UTC().Format(time.RFC3339)); err != nil {
		logger.Warn(ctx, "record last run", logger.ErrorF(err))
	}
}

// Schedule runs a sweep every interval until ctx is cancelled.
// Sweep failures are logged and do not stop the schedule.
func (m *Monitor) Schedule(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info(ctx, "low stock monitor scheduled", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Run(ctx); err != nil {
				logger.Error(ctx, "low stock sweep failed", logger.ErrorF(err))
			}
		}
	}
}
