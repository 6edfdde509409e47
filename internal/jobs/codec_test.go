package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodePayload(t *testing.T) {
	p := SendPasswordResetPayload{
		UserID:      3,
		Email:       "alice@example.com",
		Name:        "Alice",
		Token:       "signed-token",
		RequestedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	b, err := EncodePayload(JobSendPasswordReset, p)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	j, err := NewJob(JobSendPasswordReset, b, time.Time{})
	if err != nil {
		t.Fatalf("new job failed: %v", err)
	}

	if j.Status != JobPending || j.MaxTries != 5 {
		t.Fatalf("unexpected job defaults: %+v", j)
	}

	decoded, err := DecodePayload(j)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got, ok := decoded.(SendPasswordResetPayload)
	if !ok {
		t.Fatalf("decoded wrong type: %T", decoded)
	}
	if got != p {
		t.Fatalf("payload mismatch: got %+v want %+v", got, p)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobSendPasswordReset, struct{ X int }{1})
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestNewJob_InvalidType(t *testing.T) {
	_, err := NewJob(JobType("bogus"), nil, time.Time{})
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestDecodePayload_Empty(t *testing.T) {
	j := Job{Type: JobSendPasswordReset}

	_, err := DecodePayload(j)
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}
