package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"busline/internal/cache"
	apperrors "busline/internal/errors"

	"golang.org/x/sync/singleflight"
)

// authTokenTTL is deliberately shorter than the provider's one-hour token
// validity so we never present an expired token.
const authTokenTTL = 50 * time.Minute

const authTokenKey = "payment:auth_token"

type PaymentConfig struct {
	APIKey        string
	AuthURL       string
	OrderURL      string
	PaymentKeyURL string
	IntegrationID string
	Currency      string
	Timeout       time.Duration
}

// PaymentClient talks to the payment provider: api-key auth, order creation
// and payment-key generation. Tokens are cached process-wide; concurrent
// callers needing a token share a single auth call.
type PaymentClient struct {
	cfg        PaymentConfig
	httpClient *http.Client
	tokens     cache.Store
	authGroup  singleflight.Group
}

type authRequest struct {
	APIKey string `json:"api_key"`
}

type authResponse struct {
	Token string `json:"token"`
}

type orderItem struct {
	Name        string `json:"name"`
	AmountCents string `json:"amount_cents"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

type orderRequest struct {
	AuthToken      string      `json:"auth_token"`
	DeliveryNeeded bool        `json:"delivery_needed"`
	AmountCents    string      `json:"amount_cents"`
	Currency       string      `json:"currency"`
	Items          []orderItem `json:"items"`
}

type orderResponse struct {
	ID int64 `json:"id"`
}

// BillingData identifies the payer for payment-key generation.
type BillingData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
	Email     string `json:"email"`
}

type paymentKeyRequest struct {
	AuthToken     string      `json:"auth_token"`
	AmountCents   string      `json:"amount_cents"`
	Expiration    int         `json:"expiration"`
	OrderID       string      `json:"order_id"`
	Currency      string      `json:"currency"`
	IntegrationID string      `json:"integration_id"`
	BillingData   BillingData `json:"billing_data"`
	LockOrder     bool        `json:"lock_order_when_paid"`
}

type paymentKeyResponse struct {
	Token string `json:"token"`
}

func NewPaymentClient(cfg PaymentConfig, tokens cache.Store) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &PaymentClient{
		cfg:    cfg,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// AuthToken returns a valid bearer token, from cache when possible.
func (pc *PaymentClient) AuthToken(ctx context.Context) (string, error) {
	if data, err := pc.tokens.Get(ctx, authTokenKey); err == nil {
		return string(data), nil
	}

	token, err, _ := pc.authGroup.Do(authTokenKey, func() (any, error) {
		// Re-check: another flight may have filled the cache meanwhile.
		if data, err := pc.tokens.Get(ctx, authTokenKey); err == nil {
			return string(data), nil
		}

		resp, err := pc.postJSON(ctx, pc.cfg.AuthURL, "", authRequest{APIKey: pc.cfg.APIKey})
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			return "", apperrors.Upstreamf("auth returned status %d", resp.StatusCode)
		}

		var result authResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return "", apperrors.Upstreamf("failed to decode auth response: %v", err)
		}
		if result.Token == "" {
			return "", apperrors.Upstreamf("auth response contained no token")
		}

		if err := pc.tokens.Set(ctx, authTokenKey, []byte(result.Token), authTokenTTL); err != nil {
			return "", fmt.Errorf("failed to cache auth token: %w", err)
		}
		return result.Token, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// CreateOrder registers an order with the provider and returns its id.
// Amount is in cents and comes from the booking's captured total price.
func (pc *PaymentClient) CreateOrder(ctx context.Context, amountCents int64, itemName, description string, quantity int) (string, error) {
	token, err := pc.AuthToken(ctx)
	if err != nil {
		return "", err
	}

	unitCents := amountCents
	if quantity > 0 {
		unitCents = amountCents / int64(quantity)
	}

	req := orderRequest{
		AuthToken:      token,
		DeliveryNeeded: false,
		AmountCents:    strconv.FormatInt(amountCents, 10),
		Currency:       pc.cfg.Currency,
		Items: []orderItem{{
			Name:        itemName,
			AmountCents: strconv.FormatInt(unitCents, 10),
			Quantity:    quantity,
			Description: description,
		}},
	}

	resp, err := pc.postJSON(ctx, pc.cfg.OrderURL, token, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", apperrors.Upstreamf("order creation returned status %d", resp.StatusCode)
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Upstreamf("failed to decode order response: %v", err)
	}
	if result.ID == 0 {
		return "", apperrors.Upstreamf("order response contained no id")
	}
	return strconv.FormatInt(result.ID, 10), nil
}

// PaymentKey generates the client-facing payment token for an order.
func (pc *PaymentClient) PaymentKey(ctx context.Context, orderID string, amountCents int64, billing BillingData) (string, error) {
	token, err := pc.AuthToken(ctx)
	if err != nil {
		return "", err
	}

	if billing.LastName == "" {
		billing.LastName = "Customer"
	}

	req := paymentKeyRequest{
		AuthToken:     token,
		AmountCents:   strconv.FormatInt(amountCents, 10),
		Expiration:    3600,
		OrderID:       orderID,
		Currency:      pc.cfg.Currency,
		IntegrationID: pc.cfg.IntegrationID,
		BillingData:   billing,
		LockOrder:     true,
	}

	resp, err := pc.postJSON(ctx, pc.cfg.PaymentKeyURL, token, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", apperrors.Upstreamf("payment key returned status %d", resp.StatusCode)
	}

	var result paymentKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Upstreamf("failed to decode payment key response: %v", err)
	}
	if result.Token == "" {
		return "", apperrors.Upstreamf("payment key response contained no token")
	}
	return result.Token, nil
}

func (pc *PaymentClient) postJSON(ctx context.Context, url, bearer string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Upstreamf("provider unreachable: %v", err)
	}
	return resp, nil
}
