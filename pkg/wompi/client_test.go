package wompi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ventia-app/ventia-backend/pkg/config"
)

func TestGetTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer prv_test_key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if r.URL.Path != "/v1/transactions/tx-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"tx-1","status":"APPROVED","reference":"SUB-abc","amount_in_cents":2500000}}`))
	}))
	defer srv.Close()

	client := New(config.WompiConfig{BaseURL: srv.URL, PrivateKey: "prv_test_key", ConfirmTimeout: time.Second})
	tx, err := client.GetTransaction(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if tx.Status != StatusApproved || tx.Reference != "SUB-abc" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
}

func TestConfirmTransactionVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"tx-1","status":"DECLINED"}}`))
	}))
	defer srv.Close()

	client := New(config.WompiConfig{BaseURL: srv.URL, ConfirmTimeout: time.Second})
	conf := client.ConfirmTransaction(context.Background(), "tx-1")
	if !conf.Verified || conf.Status != StatusDeclined {
		t.Fatalf("expected verified declined, got %+v", conf)
	}
}

func TestConfirmTransactionAssumesApprovalOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(config.WompiConfig{BaseURL: srv.URL, ConfirmTimeout: 20 * time.Millisecond})
	conf := client.ConfirmTransaction(context.Background(), "tx-1")
	if conf.Verified {
		t.Fatalf("timeout should not count as verified")
	}
	if conf.Status != StatusApproved {
		t.Fatalf("timeout must fall back to assumed approval, got %q", conf.Status)
	}
}

func TestIsTerminalFailure(t *testing.T) {
	for _, status := range []string{StatusDeclined, StatusError, StatusVoided} {
		if !IsTerminalFailure(status) {
			t.Fatalf("%s should be terminal", status)
		}
	}
	if IsTerminalFailure(StatusPending) || IsTerminalFailure(StatusApproved) {
		t.Fatalf("pending/approved are not terminal failures")
	}
}
