package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/saeid-a/FitOnboardBack/internal/models"
)

type CreateGatewaySubscriptionInput struct {
	Email           string
	PriceID         string
	PaymentMethodID string
}

type GatewaySubscription struct {
	ID            string
	PaymentIntent models.PaymentIntent
}

type PaymentGateway interface {
	CreateSubscription(ctx context.Context, input CreateGatewaySubscriptionInput) (*GatewaySubscription, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error)
}

// StripeGateway talks to the Stripe REST API with form-encoded requests.
type StripeGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewStripeGateway(baseURL, apiKey string) *StripeGateway {
	return &StripeGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

type stripePaymentIntent struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	ClientSecret *string `json:"client_secret"`
}

func (p stripePaymentIntent) model() *models.PaymentIntent {
	return &models.PaymentIntent{ID: p.ID, Status: p.Status, ClientSecret: p.ClientSecret}
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, input CreateGatewaySubscriptionInput) (*GatewaySubscription, error) {
	if g.apiKey == "" {
		return nil, ErrGatewayUnavailable
	}

	var customer struct {
		ID string `json:"id"`
	}
	customerForm := url.Values{}
	customerForm.Set("email", input.Email)
	customerForm.Set("payment_method", input.PaymentMethodID)
	customerForm.Set("invoice_settings[default_payment_method]", input.PaymentMethodID)
	if err := g.post(ctx, "/v1/customers", customerForm, &customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	var subscription struct {
		ID            string `json:"id"`
		LatestInvoice struct {
			PaymentIntent *stripePaymentIntent `json:"payment_intent"`
		} `json:"latest_invoice"`
	}
	subscriptionForm := url.Values{}
	subscriptionForm.Set("customer", customer.ID)
	subscriptionForm.Set("items[0][price]", input.PriceID)
	subscriptionForm.Set("payment_behavior", "allow_incomplete")
	subscriptionForm.Add("expand[]", "latest_invoice.payment_intent")
	if err := g.post(ctx, "/v1/subscriptions", subscriptionForm, &subscription); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if subscription.LatestInvoice.PaymentIntent == nil {
		return nil, fmt.Errorf("create subscription: payment intent missing from response")
	}

	return &GatewaySubscription{
		ID:            subscription.ID,
		PaymentIntent: *subscription.LatestInvoice.PaymentIntent.model(),
	}, nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	if g.apiKey == "" {
		return nil, ErrGatewayUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payment_intents/"+url.PathEscape(intentID), nil)
	if err != nil {
		return nil, fmt.Errorf("build payment intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	var intent stripePaymentIntent
	if err := g.do(req, &intent); err != nil {
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return intent.model(), nil
}

func (g *StripeGateway) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	return g.do(req, out)
}

func (g *StripeGateway) do(req *http.Request, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
