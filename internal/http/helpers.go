package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"fintrack/internal/dashboard"
)

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"lower": strings.ToLower,
}

// formatMoney renders a display value with two decimals.
func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// dashboardQuery reads the filter values from the query string.
func dashboardQuery(r *http.Request) dashboard.Query {
	q := r.URL.Query()
	return dashboard.Query{
		StartDate: sanitizeInput(q.Get("start_date")),
		EndDate:   sanitizeInput(q.Get("end_date")),
		Category:  sanitizeInput(q.Get("category")),
	}
}

// categoryOptions lists the categories present in res for the filter select.
// The selected one is always included so the form round-trips.
func categoryOptions(res dashboard.Result) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, c := range res.Categories.Income {
		add(c.Category)
	}
	for _, c := range res.Categories.Expense {
		add(c.Category)
	}
	if !strings.EqualFold(res.SelectedCategory, dashboard.AllCategories) {
		add(res.SelectedCategory)
	}
	sort.Strings(out)
	return out
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
