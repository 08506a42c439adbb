// Package jobs holds the queued background work of the application.
package jobs

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/queue"
)

// Dashboard is the part of the dashboard service the job needs.
type Dashboard interface {
	Summary(ctx context.Context, ownerID uint) (*services.Summary, error)
	LowStock(ctx context.Context, ownerID uint) ([]services.LowStockItem, error)
}

// RefreshDashboardJob drops an owner's cached dashboard figures, warms the
// summary again and reports products that are running low.
type RefreshDashboardJob struct {
	OwnerID   uint   `json:"owner_id"`
	InvoiceNo string `json:"invoice_no,omitempty"`

	dash Dashboard
}

func (RefreshDashboardJob) JobName() string { return "refresh_dashboard" }

func (j *RefreshDashboardJob) Handle(ctx context.Context) error {
	if j.dash == nil {
		return fmt.Errorf("jobs: refresh_dashboard: no dashboard service")
	}
	if err := services.ForgetDashboard(ctx, j.OwnerID); err != nil {
		return fmt.Errorf("jobs: forget dashboard: %w", err)
	}
	if _, err := j.dash.Summary(ctx, j.OwnerID); err != nil {
		return err
	}

	low, err := j.dash.LowStock(ctx, j.OwnerID)
	if err != nil {
		return err
	}
	for _, item := range low {
		logger.Warn("product running low",
			"owner_id", j.OwnerID,
			"product_id", item.ID,
			"product", item.Name,
			"stock", item.Quantity,
			"invoice_no", j.InvoiceNo,
		)
	}
	return nil
}

// Register makes the job types known to m, binding them to their
// dependencies.
func Register(m *queue.Manager, dash Dashboard) {
	m.Register(RefreshDashboardJob{}.JobName(), func() queue.Job {
		return &RefreshDashboardJob{dash: dash}
	})
}

// NewRefreshDashboard builds a job ready for dispatch.
func NewRefreshDashboard(ownerID uint, invoiceNo string) *RefreshDashboardJob {
	return &RefreshDashboardJob{OwnerID: ownerID, InvoiceNo: invoiceNo}
}
