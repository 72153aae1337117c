package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Razorpay talks to a Razorpay-compatible REST API. The checkout signature is
// HMAC-SHA256 over "<provider_order_id>|<provider_payment_id>" keyed with the
// tenant secret, hex encoded.
type Razorpay struct {
	baseURL string
	client  *http.Client
}

func NewRazorpay(baseURL string) *Razorpay {
	return &Razorpay{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type razorpayOrderReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (g *Razorpay) CreateOrder(ctx context.Context, creds Credentials, amountCents int64, currency, receipt string) (ProviderOrder, error) {
	body, err := json.Marshal(razorpayOrderReq{Amount: amountCents, Currency: currency, Receipt: receipt})
	if err != nil {
		return ProviderOrder{}, err
	}

	var resp razorpayOrderResp
	if err := g.post(ctx, creds, "/v1/orders", body, &resp); err != nil {
		return ProviderOrder{}, fmt.Errorf("creating provider order: %w", err)
	}
	return ProviderOrder{ID: resp.ID, Amount: resp.Amount, Currency: resp.Currency}, nil
}

func (g *Razorpay) Verify(_ context.Context, creds Credentials, p VerifyParams) error {
	mac := hmac.New(sha256.New, []byte(creds.Secret))
	fmt.Fprintf(mac, "%s|%s", p.ProviderOrderID, p.ProviderPaymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(p.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

type razorpayRefundReq struct {
	Amount int64 `json:"amount"`
}

func (g *Razorpay) Refund(ctx context.Context, creds Credentials, providerPaymentID string, amountCents int64) error {
	body, err := json.Marshal(razorpayRefundReq{Amount: amountCents})
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v1/payments/%s/refund", providerPaymentID)
	if err := g.post(ctx, creds, path, body, &struct{}{}); err != nil {
		return fmt.Errorf("refunding provider payment: %w", err)
	}
	return nil
}

func (g *Razorpay) post(ctx context.Context, creds Credentials, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.KeyID, creds.Secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, data)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
