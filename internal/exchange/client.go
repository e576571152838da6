// Package exchange предоставляет клиент внешнего сервиса курсов валют.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownCurrency возвращается, если сервис не знает курса валюты.
var ErrUnknownCurrency = errors.New("unknown currency")

// RateLimitedError возвращается при ответе 429; RetryAfter берётся из заголовка Retry-After.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("exchange rate service rate limited, retry after %s", e.RetryAfter)
}

// Client инкапсулирует HTTP-взаимодействие с сервисом курсов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Rate описывает ответ сервиса курсов по одной валюте.
type Rate struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}

// NewClient создаёт HTTP-клиент для обращения к сервису курсов по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetRate запрашивает курс перевода валюты в валюту бюджета.
func (c *Client) GetRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if c == nil || c.baseURL == "" {
		return decimal.Decimal{}, fmt.Errorf("exchange client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	u := fmt.Sprintf("%s/api/rates/%s", base, url.PathEscape(strings.ToUpper(currency)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return decimal.Decimal{}, &RateLimitedError{RetryAfter: retryAfter}
	case http.StatusNoContent, http.StatusNotFound:
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result Rate
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode response: %w", err)
	}

	if !result.Rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive rate %s for %s", result.Rate, currency)
	}

	return result.Rate, nil
}
