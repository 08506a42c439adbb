package testkit

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// OTPMock stands in for the SMS gateway. Its Send method has the shape of
// the application's OTP sender, so it can be handed to the app directly.
// Every call is recorded on the embedded testify mock:
//
//	otp := testkit.NewOTPMock()
//	... run a flow ...
//	otp.AssertCalled(t, "Send", "9876543210", mock.Anything)
type OTPMock struct {
	mock.Mock

	mu   sync.Mutex
	sent map[string][]string
	fail map[string]error
}

// NewOTPMock returns a mock that accepts every delivery.
func NewOTPMock() *OTPMock {
	m := &OTPMock{sent: map[string][]string{}, fail: map[string]error{}}
	m.On("Send", mock.Anything, mock.Anything).Return(nil)
	return m
}

func (m *OTPMock) Send(_ context.Context, phone, code string) error {
	if err := m.Called(phone, code).Error(0); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[phone]; ok {
		delete(m.fail, phone)
		return err
	}
	m.sent[phone] = append(m.sent[phone], code)
	return nil
}

// FailNext makes the next delivery to phone return err.
func (m *OTPMock) FailNext(phone string, err error) {
	m.mu.Lock()
	m.fail[phone] = err
	m.mu.Unlock()
}

// LastCode is the most recent code delivered to phone.
func (m *OTPMock) LastCode(phone string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.sent[phone]
	if len(codes) == 0 {
		return "", false
	}
	return codes[len(codes)-1], true
}

// Delivered counts successful deliveries to phone.
func (m *OTPMock) Delivered(phone string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent[phone])
}
