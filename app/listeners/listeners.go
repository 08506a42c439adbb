// Package listeners reacts to domain events once their transaction has
// committed.
package listeners

import (
	"encoding/json"

	"github.com/shashiranjanraj/billbook/app/jobs"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/event"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/queue"
)

// Publisher delivers a message to every live connection of an owner.
type Publisher interface {
	Publish(ownerID uint, data []byte) bool
}

// Dispatcher queues background jobs.
type Dispatcher interface {
	Dispatch(job queue.Job) error
}

// StockMessage is what websocket subscribers receive.
type StockMessage struct {
	Type      string                `json:"type"`
	InvoiceNo string                `json:"invoice_no,omitempty"`
	Levels    []services.StockLevel `json:"levels"`
}

// Register wires the invoice and stock events to the websocket feed and
// the dashboard refresh job.
func Register(pub Publisher, q Dispatcher) {
	event.Listen(services.EventInvoiceCreated, func(payload interface{}) {
		e, ok := payload.(services.InvoiceCreated)
		if !ok {
			return
		}
		publish(pub, e.OwnerID, StockMessage{Type: "invoice.created", InvoiceNo: e.InvoiceNo, Levels: e.Levels})
		dispatch(q, jobs.NewRefreshDashboard(e.OwnerID, e.InvoiceNo))
	})

	event.Listen(services.EventStockChanged, func(payload interface{}) {
		e, ok := payload.(services.StockChanged)
		if !ok {
			return
		}
		publish(pub, e.OwnerID, StockMessage{Type: "stock.changed", Levels: e.Levels})
		dispatch(q, jobs.NewRefreshDashboard(e.OwnerID, ""))
	})
}

func publish(pub Publisher, ownerID uint, msg StockMessage) {
	if pub == nil || len(msg.Levels) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("listeners: encode stock message", "error", err)
		return
	}
	pub.Publish(ownerID, data)
}

func dispatch(q Dispatcher, job queue.Job) {
	if q == nil {
		return
	}
	if err := q.Dispatch(job); err != nil {
		logger.Warn("listeners: job not queued", "error", err)
	}
}
