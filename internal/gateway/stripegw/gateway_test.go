package stripegw

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-intent/internal/domain/checkout"
)

// fakeStripe is a minimal Stripe API double recording PaymentIntent requests.
type fakeStripe struct {
	mu          sync.Mutex
	createCalls int
	lastForm    url.Values

	couponPages []string
	createCode  int
	createBody  string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/coupons":
		page := 0
		if r.URL.Query().Get("starting_after") != "" {
			page = 1
		}
		_, _ = fmt.Fprint(w, f.couponPages[page])

	case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
		_ = r.ParseForm()
		f.mu.Lock()
		f.createCalls++
		f.lastForm = r.PostForm
		f.mu.Unlock()

		code := f.createCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = fmt.Fprint(w, f.createBody)

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Unrecognized request URL"}}`)
	}
}

func (f *fakeStripe) calls() (int, url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.lastForm
}

func newTestGateway(t *testing.T, f *fakeStripe) *Gateway {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	gw, err := New(Config{SecretKey: "sk_test_123", APIBase: srv.URL})
	require.NoError(t, err)
	return gw
}

const paymentIntentJSON = `{
	"id": "pi_3Abc",
	"object": "payment_intent",
	"amount": 7993,
	"currency": "usd",
	"client_secret": "pi_3Abc_secret_xyz",
	"status": "requires_payment_method"
}`

func TestNew_MissingSecretKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		gw, err := New(Config{SecretKey: key})
		require.ErrorIs(t, err, ErrMissingSecretKey)
		assert.Nil(t, gw)
	}
}

func TestListCoupons(t *testing.T) {
	f := &fakeStripe{
		couponPages: []string{
			`{"object":"list","url":"/v1/coupons","has_more":true,"data":[
				{"id":"TENOFF","object":"coupon","name":"Ten Percent","percent_off":10},
				{"id":"FIVER","object":"coupon","name":"Five Dollars","amount_off":500,"currency":"usd"}
			]}`,
			`{"object":"list","url":"/v1/coupons","has_more":false,"data":[
				{"id":"HALF","object":"coupon","name":null,"percent_off":50.5}
			]}`,
		},
	}
	gw := newTestGateway(t, f)

	coupons, err := gw.ListCoupons(t.Context())
	require.NoError(t, err)
	require.Len(t, coupons, 3)

	assert.Equal(t, "TENOFF", coupons[0].ID)
	assert.Equal(t, "Ten Percent", coupons[0].Name)
	assert.InDelta(t, 10, coupons[0].PercentOff, 1e-9)
	assert.Equal(t, int64(500), coupons[1].AmountOff)
	assert.Equal(t, "HALF", coupons[2].ID)
	assert.Empty(t, coupons[2].Name)
	assert.InDelta(t, 50.5, coupons[2].PercentOff, 1e-9)
}

func TestListCoupons_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided: sk_test_***123"}}`)
	}))
	t.Cleanup(srv.Close)

	gw, err := New(Config{SecretKey: "sk_test_123", APIBase: srv.URL})
	require.NoError(t, err)

	_, err = gw.ListCoupons(t.Context())
	require.Error(t, err)

	var gwErr *checkout.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, gwErr.Message, "Invalid API Key")
}

func TestCreateIntent(t *testing.T) {
	f := &fakeStripe{createBody: paymentIntentJSON}
	gw := newTestGateway(t, f)

	auth, err := gw.CreateIntent(t.Context(), checkout.Intent{
		Amount:   7993,
		Currency: "usd",
		Metadata: map[string]string{
			"package":             "2",
			"upgrades":            "upsell-1, upsell-2",
			"Lifetime_Protection": "true",
		},
		ReceiptEmail:            "buyer@example.com",
		AutomaticPaymentMethods: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_3Abc", auth.ID)
	assert.Equal(t, "pi_3Abc_secret_xyz", auth.ClientSecret)

	calls, form := f.calls()
	require.Equal(t, 1, calls)
	assert.Equal(t, "7993", form.Get("amount"))
	assert.Equal(t, "usd", form.Get("currency"))
	assert.Equal(t, "2", form.Get("metadata[package]"))
	assert.Equal(t, "upsell-1, upsell-2", form.Get("metadata[upgrades]"))
	assert.Equal(t, "true", form.Get("metadata[Lifetime_Protection]"))
	assert.Equal(t, "true", form.Get("automatic_payment_methods[enabled]"))
	assert.Equal(t, "buyer@example.com", form.Get("receipt_email"))
}

func TestCreateIntent_NoReceiptEmail(t *testing.T) {
	f := &fakeStripe{createBody: paymentIntentJSON}
	gw := newTestGateway(t, f)

	_, err := gw.CreateIntent(t.Context(), checkout.Intent{Amount: 2999, Currency: "usd"})
	require.NoError(t, err)

	_, form := f.calls()
	_, ok := form["receipt_email"]
	assert.False(t, ok)
}

func TestCreateIntent_Error(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		body     string
		wantMsg  string
		wantType string
	}{
		{
			name:     "invalid request",
			code:     http.StatusBadRequest,
			body:     `{"error":{"type":"invalid_request_error","message":"Amount must be at least $0.50 usd","param":"amount"}}`,
			wantMsg:  "Amount must be at least $0.50 usd",
			wantType: "invalid_request_error",
		},
		{
			name:     "server error is not retried",
			code:     http.StatusInternalServerError,
			body:     `{"error":{"type":"api_error","message":"Something went wrong on Stripe's end."}}`,
			wantMsg:  "Something went wrong on Stripe's end.",
			wantType: "api_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeStripe{createCode: tt.code, createBody: tt.body}
			gw := newTestGateway(t, f)

			auth, err := gw.CreateIntent(t.Context(), checkout.Intent{Amount: 50, Currency: "usd"})
			require.Error(t, err)
			assert.Nil(t, auth)
			calls, _ := f.calls()
			assert.Equal(t, 1, calls)

			var gwErr *checkout.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.wantMsg, gwErr.Message)
			assert.Equal(t, tt.wantType, gwErr.Type)
		})
	}
}

func TestConvertError_NonStripe(t *testing.T) {
	err := convertError(errors.New("dial tcp: connection refused"))

	var gwErr *checkout.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "dial tcp: connection refused", gwErr.Message)
	assert.Empty(t, gwErr.Type)
}
