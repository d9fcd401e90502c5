package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseJSON(t *testing.T) {
	type body struct {
		Days int `json:"days"`
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"days": 3}`, false},
		{"unknown field", `{"days": 3, "extra": true}`, true},
		{"trailing data", `{"days": 3}{"days": 4}`, true},
		{"malformed", `{"days":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.input))
			var b body
			err := ParseJSON(httptest.NewRecorder(), req, &b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && b.Days != 3 {
				t.Errorf("Days = %d, want 3", b.Days)
			}
		})
	}
}

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusPaymentRequired, "short", map[string]interface{}{"shortfall": 6})

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["detail"] != "short" || got["shortfall"] != float64(6) || got["status"] != float64(402) {
		t.Errorf("body = %v", got)
	}
	if got["type"] == "about:blank" {
		t.Error("402 should have a specific problem type")
	}
}
