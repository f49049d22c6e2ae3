package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ventia-app/ventia-backend/pkg/config"
)

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"auth0|abc","email":"owner@example.com","name":"Owner"}`))
	}))
	defer srv.Close()

	client := New(config.IdentityConfig{ProfileURL: srv.URL, ProfileTimeout: time.Second})
	profile, err := client.FetchProfile(context.Background(), "auth0|abc", "tok-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if profile.Email != "owner@example.com" || profile.Name != "Owner" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestFetchProfileNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(config.IdentityConfig{ProfileURL: srv.URL, ProfileTimeout: time.Second})
	if _, err := client.FetchProfile(context.Background(), "auth0|abc", ""); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestFetchProfileUnconfigured(t *testing.T) {
	client := New(config.IdentityConfig{})
	if _, err := client.FetchProfile(context.Background(), "auth0|abc", ""); err == nil {
		t.Fatalf("expected error when endpoint is missing")
	}
}

func TestPlaceholderEmail(t *testing.T) {
	if got := PlaceholderEmail("auth0|User 1"); got != "auth0-user-1@placeholder.ventia.app" {
		t.Fatalf("unexpected placeholder %q", got)
	}
}
