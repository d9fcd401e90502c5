package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code. The body
// is marshaled before any header is written so an encoding failure still
// produces a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	write(w, status, "application/json", payload)
}

// ProblemDetail is an RFC 7807 problem. Extra members are flattened into
// the top-level object; they cannot replace the standard members.
type ProblemDetail struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Extra    map[string]interface{}
}

// MarshalJSON implements json.Marshaler
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(p.Extra)+5)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	if p.Instance != "" {
		m["instance"] = p.Instance
	}
	return json.Marshal(m)
}

// RespondError writes an RFC 7807 Problem Details error response
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes a problem carrying additional members,
// e.g. the balance numbers of a 402.
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]interface{}) {
	payload, err := json.Marshal(ProblemDetail{
		Type:   problemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Extra:  extras,
	})
	if err != nil {
		write(w, http.StatusInternalServerError, "text/plain", []byte("internal server error"))
		return
	}
	write(w, status, "application/problem+json", payload)
}

func write(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

const rfc7231 = "https://datatracker.ietf.org/doc/html/rfc7231#section-"

var problemTypes = map[int]string{
	http.StatusBadRequest:            rfc7231 + "6.5.1",
	http.StatusUnauthorized:          "https://datatracker.ietf.org/doc/html/rfc7235#section-3.1",
	http.StatusPaymentRequired:       rfc7231 + "6.5.2",
	http.StatusForbidden:             rfc7231 + "6.5.3",
	http.StatusNotFound:              rfc7231 + "6.5.4",
	http.StatusConflict:              rfc7231 + "6.5.8",
	http.StatusRequestEntityTooLarge: rfc7231 + "6.5.11",
	http.StatusUnprocessableEntity:   "https://datatracker.ietf.org/doc/html/rfc4918#section-11.2",
	http.StatusInternalServerError:   rfc7231 + "6.6.1",
	http.StatusServiceUnavailable:    rfc7231 + "6.6.4",
}

// problemType returns the RFC 7807 type URI for a status code
func problemType(status int) string {
	if t, ok := problemTypes[status]; ok {
		return t
	}
	return "about:blank"
}
