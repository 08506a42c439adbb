package server_test

import (
	"testing"

	"github.com/shashiranjanraj/billbook/internal/server"
	"github.com/shashiranjanraj/billbook/internal/testdb"
	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/event"
	"github.com/shashiranjanraj/billbook/pkg/queue"
	"github.com/shashiranjanraj/billbook/pkg/storage"
	"github.com/shashiranjanraj/billbook/pkg/testkit"
	"github.com/shashiranjanraj/billbook/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newRunner builds a fresh application on an in-memory database and returns
// a flow runner bound to it, with the OTP sender mocked.
func newRunner(t *testing.T) (*testkit.Runner, *queue.MemoryDriver) {
	t.Helper()
	cache.Use(cache.NewMemoryStore())
	event.Flush()
	t.Cleanup(event.Flush)

	pool := workerpool.New(3)
	t.Cleanup(pool.Shutdown)

	otp := testkit.NewOTPMock()
	d := queue.NewMemoryDriver(100)
	app, err := server.Build(server.Deps{
		DB:         testdb.Open(t),
		Disk:       storage.NewLocalDisk(t.TempDir(), "http://files.test"),
		OTPStore:   cache.NewMemoryStore(),
		OTPSender:  otp.Send,
		Queue:      queue.NewManager(d),
		Pool:       pool,
		LowStockAt: 5,
	})
	require.NoError(t, err)
	return testkit.NewRunner(app.Handler()).WithOTP(otp), d
}

func TestAPIFlows(t *testing.T) {
	testkit.RunDir(t, "testdata", func(t *testing.T) *testkit.Runner {
		r, _ := newRunner(t)
		return r
	})
}

func TestInvoiceCreateQueuesOneDashboardRefresh(t *testing.T) {
	r, jobs := newRunner(t)
	r.Run(t, "testdata/invoice_create.json")

	// Only INV-1 went through; the refused creates queue nothing.
	assert.Equal(t, 1, jobs.Len())
	assert.NotZero(t, r.Vars["invoice"])
}

func TestOTPGoesThroughTheSender(t *testing.T) {
	r, _ := newRunner(t)
	r.Run(t, "testdata/otp.json")

	r.OTP.AssertNumberOfCalls(t, "Send", 2)
	r.OTP.AssertCalled(t, "Send", "9876543210", mock.AnythingOfType("string"))
	assert.Equal(t, 1, r.OTP.Delivered("9876543210"))
	assert.Zero(t, r.OTP.Delivered("9123456780"))
	assert.Len(t, r.Vars["code"], 6)
}
