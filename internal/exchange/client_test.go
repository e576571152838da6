package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetRate_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/rates/EUR" {
			t.Fatalf("path = %s, want /api/rates/EUR", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currency":"EUR","rate":"1.0825"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rate, err := client.GetRate(ctx, "eur")
	if err != nil {
		t.Fatalf("GetRate error: %v", err)
	}
	if rate.String() != "1.0825" {
		t.Fatalf("rate = %s, want 1.0825", rate)
	}
}

func TestGetRate_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.GetRate(ctx, "USD")

	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfter < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", limited.RetryAfter)
	}
}

func TestGetRate_UnknownCurrency(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.GetRate(context.Background(), "XXX")
	if !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestGetRate_NonPositiveRate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"currency":"CHF","rate":"0"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	if _, err := client.GetRate(context.Background(), "CHF"); err == nil {
		t.Fatalf("expected error for zero rate")
	}
}

func TestGetRate_NotConfigured(t *testing.T) {
	var client *Client

	if _, err := client.GetRate(context.Background(), "EUR"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
