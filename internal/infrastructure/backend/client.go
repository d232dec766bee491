// Package backend is the HTTP client for the banking backend service.
package backend

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

	"github.com/shopspring/decimal"

	"github.com/bankline/chat-gateway/internal/domain/banking"
	"github.com/bankline/chat-gateway/internal/domain/session"
)

const (
	statusSuccess = "success"
	// legacyTransferMarker prefixes replies of the form OTP_REQUIRED|amount|currency|recipient.
	legacyTransferMarker = "OTP_REQUIRED|"
	defaultHealthTimeout = 5 * time.Second
)

// Client implements banking.Backend over HTTP. Timeouts come from the
// caller's context.
type Client struct {
	baseURL       string
	client        *http.Client
	healthTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithHealthTimeout bounds health checks.
func WithHealthTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.healthTimeout = d }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        &http.Client{},
		healthTimeout: defaultHealthTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r statusResponse) ok() bool { return r.Status == statusSuccess }

func (r statusResponse) rejection() error {
	reason := r.Reason
	if reason == "" {
		reason = r.Error
	}
	return banking.Reject(reason)
}

type verifyRequest struct {
	CNIC string `json:"cnic"`
}

type verifyResponse struct {
	statusResponse
	User struct {
		CNIC     string   `json:"cnic"`
		Name     string   `json:"name"`
		Accounts []string `json:"accounts"`
	} `json:"user"`
}

func (c *Client) VerifyIdentity(ctx context.Context, document string) (*banking.Identity, error) {
	var resp verifyResponse
	if err := c.post(ctx, "/verify_cnic", verifyRequest{CNIC: document}, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection()
	}
	doc := resp.User.CNIC
	if doc == "" {
		doc = document
	}
	return &banking.Identity{Document: doc, Name: resp.User.Name, Accounts: resp.User.Accounts}, nil
}

type balanceRequest struct {
	AccountNumber string `json:"account_number"`
}

type balanceResponse struct {
	statusResponse
	User struct {
		Currency   string          `json:"account_currency"`
		BalanceUSD decimal.Decimal `json:"current_balance_usd"`
		BalancePKR decimal.Decimal `json:"current_balance_pkr"`
	} `json:"user"`
}

func (c *Client) AccountDetails(ctx context.Context, account string) (*session.AccountDetail, error) {
	var resp balanceResponse
	if err := c.post(ctx, "/user_balance", balanceRequest{AccountNumber: account}, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection()
	}
	currency := strings.ToUpper(strings.TrimSpace(resp.User.Currency))
	if currency == "" {
		currency = "PKR"
	}
	return &session.AccountDetail{
		Number:     account,
		Currency:   currency,
		BalanceUSD: resp.User.BalanceUSD,
		BalancePKR: resp.User.BalancePKR,
	}, nil
}

type selectRequest struct {
	CNIC          string `json:"cnic"`
	AccountNumber string `json:"account_number"`
}

func (c *Client) SelectAccount(ctx context.Context, document, account string) error {
	var resp statusResponse
	if err := c.post(ctx, "/select_account", selectRequest{CNIC: document, AccountNumber: account}, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return resp.rejection()
	}
	return nil
}

type queryRequest struct {
	UserMessage   string `json:"user_message"`
	AccountNumber string `json:"account_number"`
	FirstName     string `json:"first_name"`
}

type transferPayload struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Recipient string          `json:"recipient"`
}

type queryResponse struct {
	statusResponse
	Response string           `json:"response"`
	Transfer *transferPayload `json:"transfer,omitempty"`
}

// ExecuteQuery relays a free-form question. A transfer request arrives either
// as a structured transfer object or as the legacy marker string.
func (c *Client) ExecuteQuery(ctx context.Context, req banking.QueryRequest) (*banking.QueryResult, error) {
	var resp queryResponse
	body := queryRequest{UserMessage: req.Message, AccountNumber: req.Account, FirstName: req.FirstName}
	if err := c.post(ctx, "/process_query", body, &resp); err != nil {
		return nil, err
	}
	if resp.Transfer != nil {
		return &banking.QueryResult{Transfer: &banking.TransferRequest{
			Amount:    resp.Transfer.Amount,
			Currency:  resp.Transfer.Currency,
			Recipient: resp.Transfer.Recipient,
		}}, nil
	}
	if strings.HasPrefix(resp.Response, legacyTransferMarker) {
		t, err := ParseTransferMarker(resp.Response)
		if err != nil {
			return nil, err
		}
		return &banking.QueryResult{Transfer: t}, nil
	}
	if !resp.ok() && resp.Response == "" {
		return nil, resp.rejection()
	}
	return &banking.QueryResult{Reply: resp.Response}, nil
}

// ParseTransferMarker decodes OTP_REQUIRED|amount|currency|recipient.
func ParseTransferMarker(s string) (*banking.TransferRequest, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 || parts[0]+"|" != legacyTransferMarker {
		return nil, fmt.Errorf("%w: %q", banking.ErrMalformedTransfer, s)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", banking.ErrMalformedTransfer, parts[1])
	}
	currency := strings.TrimSpace(parts[2])
	recipient := strings.TrimSpace(parts[3])
	if currency == "" || recipient == "" {
		return nil, fmt.Errorf("%w: %q", banking.ErrMalformedTransfer, s)
	}
	return &banking.TransferRequest{Amount: amount, Currency: currency, Recipient: recipient}, nil
}

type transferRequest struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Recipient     string          `json:"recipient"`
	FirstName     string          `json:"first_name"`
}

type transferResponse struct {
	statusResponse
	Response  string `json:"response"`
	Reference string `json:"reference"`
}

func (c *Client) ExecuteTransfer(ctx context.Context, order banking.TransferOrder) (*banking.TransferReceipt, error) {
	var resp transferResponse
	body := transferRequest{
		AccountNumber: order.Account,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Recipient:     order.Recipient,
		FirstName:     order.FirstName,
	}
	if err := c.post(ctx, "/execute_transfer", body, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		if resp.Reason == "" && resp.Error == "" {
			resp.Reason = resp.Response
		}
		return nil, resp.rejection()
	}
	return &banking.TransferReceipt{Reference: resp.Reference, Message: resp.Response}, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", banking.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", banking.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// post sends a JSON request and decodes the JSON reply into out. Transport
// failures, timeouts, server errors and undecodable replies are reported as
// banking.ErrUnavailable.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return unavailable(path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return unavailable(path, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s returned %d", banking.ErrUnavailable, path, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return banking.Reject(fmt.Sprintf("%s returned %d", path, resp.StatusCode))
		}
		return fmt.Errorf("%w: %s: failed to decode response: %v", banking.ErrUnavailable, path, err)
	}
	return nil
}

func unavailable(path string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out", banking.ErrUnavailable, path)
	}
	return fmt.Errorf("%w: %s: %v", banking.ErrUnavailable, path, err)
}

var _ banking.Backend = (*Client)(nil)
