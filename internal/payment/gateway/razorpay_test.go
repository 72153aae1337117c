package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayVerify(t *testing.T) {
	g := NewRazorpay("http://unused")
	creds := Credentials{KeyID: "key", Secret: "s3cret"}

	err := g.Verify(context.Background(), creds, VerifyParams{
		ProviderOrderID:   "order_abc",
		ProviderPaymentID: "pay_xyz",
		Signature:         sign("s3cret", "order_abc", "pay_xyz"),
	})
	assert.NoError(t, err)

	err = g.Verify(context.Background(), creds, VerifyParams{
		ProviderOrderID:   "order_abc",
		ProviderPaymentID: "pay_xyz",
		Signature:         sign("wrong-secret", "order_abc", "pay_xyz"),
	})
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	err = g.Verify(context.Background(), creds, VerifyParams{
		ProviderOrderID:   "order_other",
		ProviderPaymentID: "pay_xyz",
		Signature:         sign("s3cret", "order_abc", "pay_xyz"),
	})
	assert.ErrorIs(t, err, ErrSignatureMismatch, "signature is bound to the order id")
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "s3cret", pass)

		var req razorpayOrderReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2500), req.Amount)
		assert.Equal(t, "INR", req.Currency)
		assert.Equal(t, "ORD-000042", req.Receipt)

		json.NewEncoder(w).Encode(razorpayOrderResp{ID: "order_abc", Amount: req.Amount, Currency: req.Currency})
	}))
	defer srv.Close()

	g := NewRazorpay(srv.URL)
	po, err := g.CreateOrder(context.Background(), Credentials{KeyID: "key", Secret: "s3cret"}, 2500, "INR", "ORD-000042")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", po.ID)
	assert.Equal(t, int64(2500), po.Amount)
}

func TestRazorpayCreateOrderProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewRazorpay(srv.URL)
	_, err := g.CreateOrder(context.Background(), Credentials{}, 100, "INR", "ORD-000001")
	assert.ErrorContains(t, err, "401")
}

func TestRazorpayRefund(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req razorpayRefundReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(500), req.Amount)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := NewRazorpay(srv.URL)
	err := g.Refund(context.Background(), Credentials{}, "pay_xyz", 500)
	require.NoError(t, err)
	assert.Equal(t, "/v1/payments/pay_xyz/refund", gotPath)
}

func TestNoPay(t *testing.T) {
	g := NewNoPay()
	po, err := g.CreateOrder(context.Background(), Credentials{}, 0, "USD", "ORD-000001")
	require.NoError(t, err)
	assert.NotEmpty(t, po.ID)
	assert.NoError(t, g.Verify(context.Background(), Credentials{}, VerifyParams{}))
	assert.NoError(t, g.Refund(context.Background(), Credentials{}, "x", 10))
}
