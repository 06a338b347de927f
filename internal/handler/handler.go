// Package handler exposes the checkout flow over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/checkout-intent/internal/domain/checkout"
	"github.com/xenking/checkout-intent/internal/domain/pricing"
)

// maxBodySize caps the request body; a cart is a few hundred bytes.
const maxBodySize = 64 << 10

// Authorizer runs a checkout. *checkout.Service implements it.
type Authorizer interface {
	Authorize(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

var _ Authorizer = (*checkout.Service)(nil)

// Handler serves the create-payment-intent endpoint.
type Handler struct {
	checkout Authorizer
}

// NewHandler constructs a Handler delegating to the checkout service.
func NewHandler(checkout Authorizer) *Handler {
	return &Handler{checkout: checkout}
}

// ServeHTTP accepts only POST with a JSON cart and answers with the client
// secret of the created charge authorization.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = io.WriteString(w, "Method Not Allowed")
		return
	}

	ctx := r.Context()
	lg := zctx.From(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		lg.Info("Read request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid Request: "+err.Error())
		return
	}

	req, err := decodeRequest(body)
	if err != nil {
		lg.Info("Decode checkout request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid Request: "+clientMessage(err))
		return
	}

	result, err := h.checkout.Authorize(ctx, req)
	if err != nil {
		status, msg := mapCheckoutError(lg, err)
		writeError(w, status, msg)
		return
	}

	writeResult(w, result)
}

// mapCheckoutError converts a checkout failure into a status and a client
// message. Error details beyond the message stay in the server log.
func mapCheckoutError(lg *zap.Logger, err error) (int, string) {
	var gwErr *checkout.GatewayError
	if errors.As(err, &gwErr) {
		lg.Error("Charge authorization failed",
			zap.String("message", gwErr.Message),
			zap.String("type", gwErr.Type),
			zap.Error(err),
		)
		return http.StatusInternalServerError, "Server Error: " + gwErr.Message
	}

	lg.Error("Checkout failed", zap.Error(err))
	return http.StatusInternalServerError, "Server Error: " + err.Error()
}

// InitFailure returns a handler answering every request with the
// initialization error, before any method or body handling.
func InitFailure(err error) http.Handler {
	msg := "Init Error: " + err.Error()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Error("Checkout unavailable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	})
}

func writeResult(w http.ResponseWriter, res *checkout.Result) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("clientSecret")
	e.Str(res.ClientSecret)
	e.FieldStart("amount")
	e.Float64(pricing.ToMajor(res.Amount))
	e.FieldStart("discount")
	e.Float64(pricing.ToMajor(res.Discount))
	e.ObjEnd()

	writeJSON(w, http.StatusOK, e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()

	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
