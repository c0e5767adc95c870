package http

import (
	"bytes"
	"context"
	"net/http"

	"fintrack/internal/dashboard"
	"fintrack/internal/log"
	"fintrack/internal/middleware/identity"
)

type dashboardPage struct {
	dashboard.Result
	CategoryOptions []string
	AllCategories   string
	IncomeColor     string
	ExpenseColor    string
	Flash           flash
}

type flash struct {
	Type    string
	Message string
}

func flashFrom(r *http.Request) flash {
	q := r.URL.Query()
	f := flash{Type: sanitizeInput(q.Get("flash_type")), Message: sanitizeInput(q.Get("flash"))}
	if f.Type != "error" {
		f.Type = "success"
	}
	return f
}

// buildDashboard never fails. An aggregation panic is logged and replaced by
// the zeroed dashboard with default filters.
func (s *Server) buildDashboard(ctx context.Context, userID string, q dashboard.Query) (res dashboard.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.FromContext(ctx).ErrorContext(ctx, "Dashboard build panicked",
				log.FieldUserID, userID,
				log.FieldErrorType, log.ErrorTypeInternal,
				"panic", rec)
			res = s.dashboard.EmptyDashboard()
			res.DataUnavailable = true
		}
	}()
	return s.dashboard.Dashboard(ctx, userID, q)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.buildDashboard(ctx, identity.UserID(ctx), dashboardQuery(r))

	page := dashboardPage{
		Result:          res,
		CategoryOptions: categoryOptions(res),
		AllCategories:   dashboard.AllCategories,
		IncomeColor:     dashboard.IncomeColor,
		ExpenseColor:    dashboard.ExpenseColor,
		Flash:           flashFrom(r),
	}
	s.render(w, r, "dashboard.html", page)
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := s.buildDashboard(ctx, identity.UserID(ctx), dashboardQuery(r))
	writeJSON(w, http.StatusOK, res)
}

// render executes name into a buffer first so a failing template never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
