// Package payments talks to the Cloud Functions that front the Mercado Pago API.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	createPixPaymentPath = "/createPixPayment"
	provisionAccountPath = "/provisionAccount"

	idempotencyHeader = "X-Idempotency-Key"
)

// ErrGateway is wrapped by every error the functions report.
var ErrGateway = errors.New("payment gateway error")

// PixRequest is the body of createPixPayment.
type PixRequest struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Email         string  `json:"email"`
	CourseID      string  `json:"courseId"`
}

// PixResponse carries the QR code data of a created PIX charge.
type PixResponse struct {
	PaymentID    string `json:"paymentId"`
	Status       string `json:"status"`
	QRCode       string `json:"qrCode"`
	QRCodeBase64 string `json:"qrCodeBase64"`
	TicketURL    string `json:"ticketUrl,omitempty"`
}

// ProvisionRequest is the body of provisionAccount.
type ProvisionRequest struct {
	TransactionID string `json:"transactionId"`
	Email         string `json:"email"`
	CourseID      string `json:"courseId"`
}

// FunctionsClient calls the payment Cloud Functions over HTTPS.
type FunctionsClient struct {
	baseURL string
	client  *http.Client
}

// NewFunctionsClient creates a client for the functions deployed under baseURL.
func NewFunctionsClient(baseURL string, timeout time.Duration) *FunctionsClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FunctionsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// CreatePixPayment creates a PIX charge. The transaction ID is sent as the
// idempotency key so a retried call never creates a second charge.
func (c *FunctionsClient) CreatePixPayment(ctx context.Context, req PixRequest) (*PixResponse, error) {
	var out PixResponse
	if err := c.post(ctx, createPixPaymentPath, req.TransactionID, req, &out); err != nil {
		return nil, err
	}
	if out.QRCode == "" && out.QRCodeBase64 == "" {
		return nil, fmt.Errorf("%w: createPixPayment returned no QR code", ErrGateway)
	}
	return &out, nil
}

// ProvisionAccount asks the functions to provision the buyer's access to a course.
func (c *FunctionsClient) ProvisionAccount(ctx context.Context, req ProvisionRequest) error {
	return c.post(ctx, provisionAccountPath, "provision-"+req.TransactionID, req, nil)
}

func (c *FunctionsClient) post(ctx context.Context, path, idempotencyKey string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	req.Header.Set(idempotencyHeader, idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrGateway, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(snippet))
		if json.Unmarshal(snippet, &errBody) == nil {
			if errBody.Message != "" {
				msg = errBody.Message
			} else if errBody.Error != "" {
				msg = errBody.Error
			}
		}
		return fmt.Errorf("%w: %s returned HTTP %d: %s", ErrGateway, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrGateway, path, err)
	}
	return nil
}
