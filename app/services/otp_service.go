package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/cache"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpTTL         = 5 * time.Minute
	otpMaxAttempts = 5
)

type OTPSendInput struct {
	Phone string `json:"phone" validate:"required,digits=10"`
}

type OTPVerifyInput struct {
	Phone string `json:"phone" validate:"required,digits=10"`
	Code  string `json:"otp" validate:"required,digits=6"`
}

// OTPSender delivers a code to a phone number.
type OTPSender func(ctx context.Context, phone, code string) error

// LogSender writes the code to the application log in place of an SMS
// gateway.
func LogSender(ctx context.Context, phone, code string) error {
	logger.WithCtx(ctx).Info("otp delivery", "phone", phone, "otp", code)
	return nil
}

type otpRecord struct {
	Hash      string    `json:"hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPService issues one-time codes and checks them. Only a bcrypt hash of
// each code is kept, in the shared cache store.
type OTPService struct {
	store cache.Store
	send  OTPSender

	// Now is the clock used for expiry.
	Now func() time.Time
}

func NewOTPService(store cache.Store, send OTPSender) *OTPService {
	if send == nil {
		send = LogSender
	}
	return &OTPService{store: store, send: send, Now: time.Now}
}

func otpKey(phone string) string { return "otp:" + phone }

// Send generates a fresh 6 digit code for phone, replacing any earlier one.
func (s *OTPService) Send(ctx context.Context, in OTPSendInput) error {
	if err := checkInput(in); err != nil {
		return err
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return persistence("generate otp", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return persistence("hash otp", err)
	}

	rec := otpRecord{Hash: string(hash), ExpiresAt: s.Now().Add(otpTTL)}
	if err := s.save(ctx, in.Phone, rec); err != nil {
		return persistence("store otp", err)
	}
	if err := s.send(ctx, in.Phone, code); err != nil {
		_ = s.store.Del(ctx, otpKey(in.Phone))
		return persistence("deliver otp", err)
	}
	return nil
}

// Verify checks code against the pending OTP for phone. A match consumes
// the code. Too many wrong guesses discard it.
func (s *OTPService) Verify(ctx context.Context, in OTPVerifyInput) error {
	if err := checkInput(in); err != nil {
		return err
	}
	key := otpKey(in.Phone)

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return invalid("otp", "OTP expired or not found")
		}
		return persistence("load otp", err)
	}
	var rec otpRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return persistence("decode otp", err)
	}

	if !s.Now().Before(rec.ExpiresAt) {
		_ = s.store.Del(ctx, key)
		return invalid("otp", "OTP expired or not found")
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(in.Code)) != nil {
		rec.Attempts++
		if rec.Attempts >= otpMaxAttempts {
			_ = s.store.Del(ctx, key)
		} else if err := s.save(ctx, in.Phone, rec); err != nil {
			return persistence("store otp", err)
		}
		return invalid("otp", "Invalid OTP")
	}

	if err := s.store.Del(ctx, key); err != nil {
		return persistence("consume otp", err)
	}
	logger.WithCtx(ctx).Info("otp verified", "phone", in.Phone)
	return nil
}

func (s *OTPService) save(ctx context.Context, phone string, rec otpRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := rec.ExpiresAt.Sub(s.Now())
	if ttl <= 0 {
		return s.store.Del(ctx, otpKey(phone))
	}
	return s.store.Set(ctx, otpKey(phone), raw, ttl)
}
