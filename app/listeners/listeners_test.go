package listeners_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/shashiranjanraj/billbook/app/jobs"
	"github.com/shashiranjanraj/billbook/app/listeners"
	"github.com/shashiranjanraj/billbook/app/services"
	"github.com/shashiranjanraj/billbook/pkg/event"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	owner uint
	data  []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
	jobs []queue.Job
}

func (r *recorder) Publish(ownerID uint, data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{ownerID, data})
	return true
}

func (r *recorder) Dispatch(job queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func setup(t *testing.T) *recorder {
	t.Helper()
	event.Flush()
	t.Cleanup(event.Flush)
	r := &recorder{}
	listeners.Register(r, r)
	return r
}

func TestInvoiceCreatedPublishesLevelsAndQueuesRefresh(t *testing.T) {
	r := setup(t)

	event.Fire(services.EventInvoiceCreated, services.InvoiceCreated{
		OwnerID:   4,
		InvoiceID: 10,
		InvoiceNo: "INV-10",
		Levels:    []services.StockLevel{{ProductID: 1, Name: "Widget", Stock: 3}},
	})

	require.Len(t, r.msgs, 1)
	assert.EqualValues(t, 4, r.msgs[0].owner)

	var msg listeners.StockMessage
	require.NoError(t, json.Unmarshal(r.msgs[0].data, &msg))
	assert.Equal(t, "invoice.created", msg.Type)
	assert.Equal(t, "INV-10", msg.InvoiceNo)
	assert.Equal(t, 3, msg.Levels[0].Stock)

	require.Len(t, r.jobs, 1)
	job, ok := r.jobs[0].(*jobs.RefreshDashboardJob)
	require.True(t, ok)
	assert.EqualValues(t, 4, job.OwnerID)
}

func TestStockChangedPublishes(t *testing.T) {
	r := setup(t)

	event.Fire(services.EventStockChanged, services.StockChanged{
		OwnerID: 2,
		Levels:  []services.StockLevel{{ProductID: 5, Name: "Bolt", Stock: 40}},
	})

	require.Len(t, r.msgs, 1)
	assert.Contains(t, string(r.msgs[0].data), `"stock.changed"`)
	assert.Len(t, r.jobs, 1)
}

func TestUnexpectedPayloadIsIgnored(t *testing.T) {
	r := setup(t)
	event.Fire(services.EventInvoiceCreated, "nope")
	assert.Empty(t, r.msgs)
	assert.Empty(t, r.jobs)
}
