package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rzpsdk "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	rzputils "github.com/razorpay/razorpay-go/utils"

	"github.com/sahilverma-dev/threadcart-backend/pkg/config"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// Client wraps the Razorpay SDK with the primitives the order and refund
// flows need, plus centralized logging and error mapping.
type Client struct {
	sdk       *rzpsdk.Client
	keySecret string
	logger    *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	sdk := rzpsdk.NewClient(keyID, keySecret)
	if cfg.Timeout > 0 {
		sdk.SetTimeout(int16(cfg.Timeout.Seconds()))
	}

	c := &Client{
		sdk:       sdk,
		keySecret: keySecret,
		logger:    logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// GatewayOrder is the subset of Razorpay's order resource the backend keeps.
type GatewayOrder struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// GatewayRefund is the subset of Razorpay's refund resource the backend keeps.
type GatewayRefund struct {
	ID          string `json:"id"`
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount"`
	Status      string `json:"status"`
}

// CreateOrder registers a pending payment with the gateway. Amounts are in
// the currency's smallest unit, matching the rest of the codebase.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order")
	}

	data := map[string]interface{}{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	}
	c.log(ctx, "request", "create_order", map[string]any{"amount": amountCents, "currency": currency, "receipt": receipt})

	res, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, c.mapSDKError(err, "razorpay create order")
	}

	order, err := parseGatewayOrder(res)
	if err != nil {
		return nil, err
	}
	c.log(ctx, "response", "create_order", map[string]any{"gateway_order_id": order.ID, "status": order.Status})
	return order, nil
}

// VerifyPaymentSignature checks the checkout callback signature. The signed
// payload is "<order_id>|<payment_id>" keyed with the API secret.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": paymentID,
	}
	return rzputils.VerifyPaymentSignature(params, signature, c.keySecret)
}

// Refund returns captured funds to the payment's source instrument. The
// receipt doubles as the provider-side idempotency handle, so a retried
// refund for the same request cannot pay twice.
func (c *Client) Refund(ctx context.Context, paymentID string, amountCents int64, receipt string, notes map[string]string) (*GatewayRefund, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay refund")
	}

	data := map[string]interface{}{"receipt": receipt}
	if len(notes) > 0 {
		noteFields := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			noteFields[k] = v
		}
		data["notes"] = noteFields
	}
	c.log(ctx, "request", "refund", map[string]any{"payment_id": paymentID, "amount": amountCents, "receipt": receipt})

	res, err := c.sdk.Payment.Refund(paymentID, int(amountCents), data, nil)
	if err != nil {
		c.log(ctx, "error", "refund", map[string]any{"payment_id": paymentID, "error": err.Error()})
		return nil, c.mapSDKError(err, "razorpay refund")
	}

	refund, err := parseGatewayRefund(res)
	if err != nil {
		return nil, err
	}
	c.log(ctx, "response", "refund", map[string]any{"refund_id": refund.ID, "status": refund.Status})
	return refund, nil
}

func parseGatewayOrder(res map[string]interface{}) (*GatewayOrder, error) {
	return &GatewayOrder{
		ID:          stringField(res, "id"),
		AmountCents: amountField(res, "amount"),
		Currency:    stringField(res, "currency"),
		Receipt:     stringField(res, "receipt"),
		Status:      stringField(res, "status"),
	}, requireField(res, "id", "order")
}

func parseGatewayRefund(res map[string]interface{}) (*GatewayRefund, error) {
	return &GatewayRefund{
		ID:          stringField(res, "id"),
		PaymentID:   stringField(res, "payment_id"),
		AmountCents: amountField(res, "amount"),
		Status:      stringField(res, "status"),
	}, requireField(res, "id", "refund")
}

func requireField(res map[string]interface{}, key, resource string) error {
	if stringField(res, key) == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("razorpay %s response missing %s", resource, key))
	}
	return nil
}

func stringField(res map[string]interface{}, key string) string {
	if value, ok := res[key].(string); ok {
		return value
	}
	return ""
}

func amountField(res map[string]interface{}, key string) int64 {
	switch value := res[key].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func (c *Client) mapSDKError(err error, message string) error {
	return pkgerrors.Wrap(domainCodeForError(err), err, message)
}

func domainCodeForError(err error) pkgerrors.Code {
	switch err.(type) {
	case *rzperrors.BadRequestError:
		return pkgerrors.CodeValidation
	case *rzperrors.GatewayError, *rzperrors.ServerError:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "signature", "token", "account", "ifsc", "contact", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
