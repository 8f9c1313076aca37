package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/services/settlement-service/internal/service"
)

// WebhookServer terminates Razorpay webhooks. The signature is computed over
// the raw body, so the handler reads it before any decoding.
type WebhookServer struct {
	gate *service.IngestionGate
	svc  *service.SettlementSvc
}

func NewWebhookServer(gate *service.IngestionGate, svc *service.SettlementSvc) *WebhookServer {
	return &WebhookServer{gate: gate, svc: svc}
}

func (s *WebhookServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/razorpay", s.handleWebhook)
	mux.HandleFunc("/internal/payouts/run", s.handleRunPayouts)
	mux.HandleFunc("/internal/refunds", s.handleRefund)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *WebhookServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("X-Razorpay-Signature")
	eventID := r.Header.Get("X-Razorpay-Event-Id")

	if err := s.gate.Ingest(r.Context(), body, sig, eventID); err != nil {
		log.Printf("[webhook] ingest %s failed: %v", eventID, err)
		switch {
		case errors.Is(err, service.ErrSignatureMismatch):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case apperr.IsValidation(err):
			// signed but unparseable; the payload will not improve on retry
			http.Error(w, "bad request", http.StatusBadRequest)
		case apperr.IsInvariant(err):
			http.Error(w, "unprocessable", http.StatusUnprocessableEntity)
		default:
			// non-2xx so the gateway redelivers
			http.Error(w, "retry later", http.StatusServiceUnavailable)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *WebhookServer) handleRunPayouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := s.svc.RunDuePayouts(r.Context())
	if err != nil {
		log.Printf("[webhook] payout sweep failed: %v", err)
		http.Error(w, "sweep failed", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"initiated": n})
}

func (s *WebhookServer) handleRefund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		PaymentID string `json:"payment_id"`
		Amount    int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	refundID, err := s.svc.InitiateRefund(r.Context(), req.PaymentID, req.Amount)
	if err != nil {
		log.Printf("[webhook] refund for payment %s failed: %v", req.PaymentID, err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"refund_id": refundID})
}
