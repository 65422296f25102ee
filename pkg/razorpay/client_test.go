package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/rs/zerolog"

	"github.com/sahilverma-dev/threadcart-backend/pkg/config"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "razorpay-test", Level: zerolog.Disabled})
	client, err := NewClient(context.Background(), config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		Timeout:   5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientValidatesCredentials(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "razorpay-test", Level: zerolog.Disabled})

	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeySecret: "s"}, logg); err != errKeyIDRequired {
		t.Fatalf("expected key id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "k"}, logg); err != errKeySecretRequired {
		t.Fatalf("expected key secret error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.RazorpayConfig{KeyID: "k", KeySecret: "s"}, nil); err != errLoggerRequired {
		t.Fatalf("expected logger error, got %v", err)
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := newTestClient(t)

	mac := hmac.New(sha256.New, []byte("rzp_test_secret"))
	mac.Write([]byte("order_Nxy123|pay_abc"))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifyPaymentSignature("order_Nxy123", "pay_abc", valid) {
		t.Fatal("expected valid signature to verify")
	}
	if client.VerifyPaymentSignature("order_Nxy123", "pay_abc", "deadbeef") {
		t.Fatal("expected tampered signature to fail")
	}
	if client.VerifyPaymentSignature("order_other", "pay_abc", valid) {
		t.Fatal("expected signature for a different order to fail")
	}
}

func TestParseGatewayOrder(t *testing.T) {
	order, err := parseGatewayOrder(map[string]interface{}{
		"id":       "order_Nxy123",
		"amount":   float64(129900),
		"currency": "INR",
		"receipt":  "tc-42",
		"status":   "created",
	})
	if err != nil {
		t.Fatalf("parseGatewayOrder returned error: %v", err)
	}
	if order.ID != "order_Nxy123" || order.AmountCents != 129900 || order.Status != "created" {
		t.Fatalf("unexpected order %+v", order)
	}

	if _, err := parseGatewayOrder(map[string]interface{}{"amount": float64(100)}); err == nil {
		t.Fatal("expected error for response without id")
	}
}

func TestParseGatewayRefund(t *testing.T) {
	refund, err := parseGatewayRefund(map[string]interface{}{
		"id":         "rfnd_001",
		"payment_id": "pay_abc",
		"amount":     float64(5000),
		"status":     "processed",
	})
	if err != nil {
		t.Fatalf("parseGatewayRefund returned error: %v", err)
	}
	if refund.ID != "rfnd_001" || refund.PaymentID != "pay_abc" || refund.AmountCents != 5000 {
		t.Fatalf("unexpected refund %+v", refund)
	}
}

func TestDomainCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.Code
	}{
		{name: "bad request", err: &rzperrors.BadRequestError{}, want: pkgerrors.CodeValidation},
		{name: "gateway", err: &rzperrors.GatewayError{}, want: pkgerrors.CodeDependency},
		{name: "server", err: &rzperrors.ServerError{}, want: pkgerrors.CodeDependency},
		{name: "plain", err: context.DeadlineExceeded, want: pkgerrors.CodeDependency},
	}

	for _, tt := range tests {
		if got := domainCodeForError(tt.err); got != tt.want {
			t.Fatalf("%s: expected %s got %s", tt.name, tt.want, got)
		}
	}
}

func TestRedact(t *testing.T) {
	client := newTestClient(t)

	if got := client.redact("payout_account", "123456789"); got != "[REDACTED]" {
		t.Fatalf("account not redacted: %v", got)
	}
	if got := client.redact("signature", "abc"); got != "[REDACTED]" {
		t.Fatalf("signature not redacted: %v", got)
	}
	if got := client.redact("amount", int64(100)); got != int64(100) {
		t.Fatalf("amount should pass through, got %v", got)
	}
}
