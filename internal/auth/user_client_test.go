package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"scriptmentor/internal/domain"
)

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") != "anon-key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Write([]byte(`{"id":"user-1","email":"a@example.com","role":"authenticated"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	client := NewUserClient(srv.URL+"/", "anon-key")

	user, err := client.GetUser(context.Background(), "good")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.ID != "user-1" || user.Email != "a@example.com" {
		t.Errorf("user = %+v", user)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty token", "", domain.ErrUnauthorized},
		{"expired token", "stale", domain.ErrUnauthorized},
		{"server failure", "broken", domain.ErrConnectivity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.GetUser(context.Background(), tt.token); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGetUserUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewUserClient(url, "k").GetUser(context.Background(), "good")
	if !errors.Is(err, domain.ErrConnectivity) {
		t.Errorf("err = %v, want ErrConnectivity", err)
	}
}
