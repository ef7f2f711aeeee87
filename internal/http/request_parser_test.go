package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"moneymind/internal/core"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{"number", `{"amount":12.5}`, 12.5, false},
		{"dot string", `{"amount":"12.50"}`, 12.5, false},
		{"comma string", `{"amount":"12,50"}`, 12.5, false},
		{"null", `{"amount":null}`, 0, false},
		{"missing", `{}`, 0, false},
		{"negative string", `{"amount":"-1"}`, 0, true},
		{"garbage string", `{"amount":"abc"}`, 0, true},
		{"boolean", `{"amount":true}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				Amount amount `json:"amount"`
			}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &dst)

			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidInput) {
					t.Fatalf("decodeJSON() error = %v, want invalid input", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON() unexpected error: %v", err)
			}
			if float64(dst.Amount) != tt.want {
				t.Errorf("amount = %v, want %v", dst.Amount, tt.want)
			}
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"empty", "", "empty"},
		{"malformed", `{"name":`, "malformed"},
		{"wrong type", `{"name":42}`, "malformed"},
		{"trailing data", `{"name":"a"} {"name":"b"}`, "single JSON object"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct {
				Name string `json:"name"`
			}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &dst)

			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("decodeJSON() error = %v, want invalid input", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("decodeJSON() error = %q, want it to contain %q", err, tt.contains)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"limit=25", 25, false},
		{"limit=0", 0, false},
		{"limit=%20", 0, false},
		{"limit=-1", 0, true},
		{"limit=ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := parseLimit(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  groceries  ", "groceries"},
		{"line\nbreak", "line\nbreak"},
		{"tab\there", "tab\there"},
		{"bell\x07char", "bellchar"},
		{"null\x00byte", "nullbyte"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
