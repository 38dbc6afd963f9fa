package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// Error is a transport or processor failure: the payment's final state is
// unknown. Callers must not treat it as a decline.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %s: %v", e.Message, e.Err)
	}
	return "payment gateway: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the hosted payment processor. It is stateless; deposits
// are de-duplicated downstream by the ledger's unique reference constraint.
type Client struct {
	baseURL     string
	secret      string
	callbackURL string
	currency    string
	http        *http.Client
}

type Config struct {
	BaseURL     string
	Secret      string
	CallbackURL string
	Currency    string
	Timeout     time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "GHS"
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		secret:      cfg.Secret,
		callbackURL: cfg.CallbackURL,
		currency:    currency,
		http:        &http.Client{Timeout: timeout},
	}
}

// InitiateResult is the hosted-checkout handle for one payment attempt.
type InitiateResult struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// Verification is the processor's final word on a payment attempt.
// WalletID is the metadata we attached at initiation, echoed back so the
// credited account does not have to be resolved by email.
type Verification struct {
	Amount     int64
	PayerEmail string
	WalletID   *uuid.UUID
	Succeeded  bool
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
		Metadata map[string]string `json:"metadata"`
	} `json:"data"`
}

// InitiateDeposit registers a payment attempt with the processor. Amount is
// in minor units (pesewas). walletID rides along as metadata and comes back
// at verification time.
func (c *Client) InitiateDeposit(ctx context.Context, amount int64, payerEmail string, walletID uuid.UUID) (*InitiateResult, error) {
	if amount <= 0 {
		return nil, &Error{Message: "amount must be positive"}
	}
	body, err := json.Marshal(initializeRequest{
		Email:       payerEmail,
		Amount:      amount,
		Currency:    c.currency,
		CallbackURL: c.callbackURL,
		Metadata:    map[string]string{"wallet_id": walletID.String()},
	})
	if err != nil {
		return nil, &Error{Message: "encode initialize request", Err: err}
	}

	var resp initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &Error{Message: "processor rejected initialization: " + resp.Message}
	}
	return &InitiateResult{
		AuthorizationURL: resp.Data.AuthorizationURL,
		Reference:        resp.Data.Reference,
	}, nil
}

// VerifyDeposit asks the processor for the final status of a payment.
// Safe to repeat; it only queries. A transport failure or timeout is an
// *Error (outcome unknown), a processor "not success" is Succeeded=false.
func (c *Client) VerifyDeposit(ctx context.Context, reference string) (*Verification, error) {
	if reference == "" {
		return nil, &Error{Message: "empty reference"}
	}

	var resp verifyResponse
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &Error{Message: "processor rejected verification: " + resp.Message}
	}

	v := &Verification{
		Amount:     resp.Data.Amount,
		PayerEmail: resp.Data.Customer.Email,
		Succeeded:  resp.Data.Status == "success",
	}
	if raw, ok := resp.Data.Metadata["wallet_id"]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			v.WalletID = &id
		}
	}
	return v, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Message: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: "call processor", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Message: fmt.Sprintf("processor returned status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Message: "decode processor response", Err: err}
	}
	return nil
}
