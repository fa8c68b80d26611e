package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"budgetplanner/internal/core"
	"budgetplanner/internal/report"
)

func parserFor(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		p := parserFor(t, `{"amount": 12.5, "category": " Food\u0007 ", "recurring": true}`)
		if err := p.Parse(); err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if got := p.Get("amount"); got != "12.5" {
			t.Fatalf("amount = %q", got)
		}
		if got := p.Get("category"); got != "Food" {
			t.Fatalf("category = %q", got)
		}
		if got := p.Get("recurring"); got != "true" {
			t.Fatalf("recurring = %q", got)
		}
		if got := p.Get("date"); got != "" {
			t.Fatalf("date = %q, want empty", got)
		}
	})

	t.Run("form", func(t *testing.T) {
		p := parserFor(t, "type=expense&amount=3%2C20")
		if err := p.Parse(); err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if p.Get("amount") != "3,20" || p.Get("type") != "expense" {
			t.Fatalf("unexpected form parse: amount=%q", p.Get("amount"))
		}
	})

	t.Run("empty", func(t *testing.T) {
		p := parserFor(t, "")
		if err := p.Parse(); err != nil || p.Get("anything") != "" {
			t.Fatalf("Parse() error = %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		p := parserFor(t, `{"amount":`)
		if err := p.Parse(); !errors.Is(err, errMalformedBody) {
			t.Fatalf("Parse() error = %v, want malformed", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		p := parserFor(t, `{"description":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
		if err := p.Parse(); !errors.Is(err, errMalformedBody) {
			t.Fatalf("Parse() error = %v, want malformed", err)
		}
	})
}

func TestParseTransactionQuery(t *testing.T) {
	today := core.NewDate(2024, 6, 15)
	now := func() core.Date { return today }

	tests := []struct {
		name     string
		query    string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{name: "none", query: ""},
		{name: "named range", query: "range=" + report.RangeLast3Months, wantFrom: "2024-03-15"},
		{name: "unknown range falls back", query: "range=forever", wantFrom: "2023-12-15"},
		{name: "explicit", query: "from=2024-01-01&to=2024-01-31", wantFrom: "2024-01-01", wantTo: "2024-01-31"},
		{name: "inverted", query: "from=2024-02-01&to=2024-01-31", wantErr: true},
		{name: "bad date", query: "from=01/02/2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			q, err := parseTransactionQuery(values, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("error %v should be a validation error", err)
				}
				return
			}
			if got := dateOrEmpty(q.Range.From); got != tt.wantFrom {
				t.Fatalf("from = %q, want %q", got, tt.wantFrom)
			}
			if got := dateOrEmpty(q.Range.To); got != tt.wantTo {
				t.Fatalf("to = %q, want %q", got, tt.wantTo)
			}
		})
	}
}

func dateOrEmpty(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func TestParseTop(t *testing.T) {
	for in, want := range map[string]int{
		"":    report.DefaultTopCategories,
		"3":   3,
		"50":  50,
		"0":   report.DefaultTopCategories,
		"51":  report.DefaultTopCategories,
		"abc": report.DefaultTopCategories,
	} {
		if got := parseTop(in); got != want {
			t.Errorf("parseTop(%q) = %d, want %d", in, got, want)
		}
	}
}
