package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripeGatewayCreatesSubscription(t *testing.T) {
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/v1/customers":
			if r.PostForm.Get("payment_method") != "pm_card" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"id":"cus_1"}`))
		case "/v1/subscriptions":
			if r.PostForm.Get("customer") != "cus_1" || r.PostForm.Get("items[0][price]") != "price_1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"id":"sub_1","latest_invoice":{"payment_intent":{"id":"pi_1","status":"requires_action","client_secret":"secret"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gateway := NewStripeGateway(server.URL+"/", "sk_test")
	created, err := gateway.CreateSubscription(context.Background(), CreateGatewaySubscriptionInput{
		Email:           "sam@example.com",
		PriceID:         "price_1",
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if created.ID != "sub_1" || created.PaymentIntent.Status != "requires_action" {
		t.Fatalf("unexpected subscription %+v", created)
	}
	if created.PaymentIntent.ClientSecret == nil || *created.PaymentIntent.ClientSecret != "secret" {
		t.Fatal("expected client secret to be returned")
	}
	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("expected distinct idempotency keys, got %v", keys)
	}
}

func TestStripeGatewayReportsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"card declined"}}`))
	}))
	defer server.Close()

	gateway := NewStripeGateway(server.URL, "sk_test")
	if _, err := gateway.GetPaymentIntent(context.Background(), "pi_1"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}

	unconfigured := NewStripeGateway(server.URL, "")
	if _, err := unconfigured.GetPaymentIntent(context.Background(), "pi_1"); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}
