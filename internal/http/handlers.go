package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/middleware/identity"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.FieldErrorType, log.ErrorTypeDatabase,
				log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	if isAPIPath(r) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

func (s *Server) onMissingUser(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Request without user identity",
		log.FieldErrorType, log.ErrorTypeAuth,
		log.FieldPath, r.URL.Path)
	if isAPIPath(r) {
		writeJSONError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func isAPIPath(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/dashboard.json" || wantsJSON(r)
}

type formPage struct {
	Kind    string
	Today   string
	Incomes string
	Error   string
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	kind := core.Expense.String()
	if k, err := core.ParseKind(r.URL.Query().Get("kind")); err == nil {
		kind = k.String()
	}
	today := s.dashboard.WithDefaults(dashboard.Query{}).EndDate
	s.render(w, r, "transaction_form.html", formPage{
		Kind:    kind,
		Today:   today,
		Incomes: core.Income.String(),
		Error:   sanitizeInput(r.URL.Query().Get("error")),
	})
}

type createdResponse struct {
	Message     string         `json:"message"`
	Transaction dashboard.Item `json:"transaction"`
	Balance     *float64       `json:"balance,omitempty"`
}

// handleCreateTransaction records a transaction. HTMX requests get a
// fragment and triggers, JSON clients get JSON, plain form posts are
// redirected back with a flash message.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(ctx, "Parse request body failed", log.FieldError, err)
		s.createFailed(w, r, parser, http.StatusBadRequest, "Invalid request format")
		return
	}

	created, err := s.transactions.Create(ctx, identity.UserID(ctx), parser.Fields(transactionFields...))
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			logger.InfoContext(ctx, "Transaction rejected",
				log.FieldErrorType, log.ErrorTypeValidation,
				log.FieldError, verr.Reason)
			s.createFailed(w, r, parser, http.StatusBadRequest, verr.Reason)
			return
		}
		logger.ErrorContext(ctx, "Create transaction failed",
			log.FieldOperation, log.OpCreate,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		s.createFailed(w, r, parser, http.StatusInternalServerError, "Could not save the transaction. Please try again.")
		return
	}

	msg := created.Message()
	tx := created.Transaction
	switch {
	case isHTMX(r):
		SuccessResponse(msg).
			TriggerTransactionCreated(tx.Kind.String(), tx.OccurredAt.Format(core.DateLayout)).
			TriggerFormReset().
			TriggerDashboardRefresh().
			TriggerSuccessNotification(msg).
			Write(w)
	case parser.IsJSON() || wantsJSON(r):
		resp := createdResponse{Message: msg, Transaction: dashboard.FormatItem(tx)}
		if created.BalanceKnown {
			b := core.DisplayValue(created.Balance)
			resp.Balance = &b
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		http.Redirect(w, r, "/?"+url.Values{"flash": {msg}, "flash_type": {"success"}}.Encode(), http.StatusSeeOther)
	}
}

func (s *Server) createFailed(w http.ResponseWriter, r *http.Request, parser *RequestBodyParser, status int, msg string) {
	switch {
	case isHTMX(r):
		resp := BadRequestError(msg)
		if status >= http.StatusInternalServerError {
			resp = InternalServerError(msg)
		}
		resp.TriggerErrorNotification(msg).Write(w)
	case parser.IsJSON() || wantsJSON(r):
		writeJSONError(w, status, msg)
	default:
		q := url.Values{"error": {msg}}
		if kind := parser.Get(core.FieldKind); kind != "" {
			q.Set(core.FieldKind, kind)
		}
		http.Redirect(w, r, "/transactions/new?"+q.Encode(), http.StatusSeeOther)
	}
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := s.dashboard.Summary(ctx, identity.UserID(ctx))
	if err != nil {
		s.storeUnavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	s.writeListing(w, r, nil)
}

func (s *Server) handleAPIListByKind(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid kind: valid kinds are 'income' or 'expense'")
		return
	}
	s.writeListing(w, r, &kind)
}

func (s *Server) writeListing(w http.ResponseWriter, r *http.Request, kind *core.Kind) {
	ctx := r.Context()
	listing, err := s.dashboard.List(ctx, identity.UserID(ctx), kind)
	if err != nil {
		s.storeUnavailable(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) storeUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusServiceUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Read transactions failed",
		log.FieldOperation, log.OpRead,
		log.FieldErrorType, log.ErrorTypeDatabase,
		log.FieldError, err)
	w.Header().Set("Retry-After", "5")
	writeJSONError(w, status, "transactions are temporarily unavailable")
}
