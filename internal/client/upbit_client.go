package client

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yourorg/trading-engine/internal/model"
	"github.com/yourorg/trading-engine/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	UpbitAPIBaseURL = "https://api.upbit.com"
	MaxCandlesLimit = 200

	candleFetchRetries = 3
)

const upbitTimeLayout = "2006-01-02T15:04:05"

// UpbitClient handles communication with the Upbit API. It implements
// the market data and order execution provider contracts; candle
// series are normalized to oldest-first before being returned.
type UpbitClient struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewUpbitClient creates a new Upbit API client. baseURL falls back
// to the public endpoint when empty.
func NewUpbitClient(baseURL, accessKey, secretKey string, timeout time.Duration, logger *zap.Logger) *UpbitClient {
	if baseURL == "" {
		baseURL = UpbitAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UpbitClient{
		baseURL:   baseURL,
		accessKey: accessKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type upbitTicker struct {
	Market           string  `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	SignedChangeRate float64 `json:"signed_change_rate"`
	AccTradeVolume   float64 `json:"acc_trade_volume_24h"`
}

type upbitCandle struct {
	Market         string  `json:"market"`
	CandleTimeUTC  string  `json:"candle_date_time_utc"`
	OpeningPrice   float64 `json:"opening_price"`
	HighPrice      float64 `json:"high_price"`
	LowPrice       float64 `json:"low_price"`
	TradePrice     float64 `json:"trade_price"`
	AccTradeVolume float64 `json:"candle_acc_trade_volume"`
}

type upbitOrder struct {
	UUID string `json:"uuid"`
}

type upbitAccount struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// GetSnapshot retrieves the current ticker state for a symbol.
func (c *UpbitClient) GetSnapshot(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	params := url.Values{}
	params.Add("markets", symbol)

	var tickers []upbitTicker
	if err := c.get(ctx, "/v1/ticker", params, &tickers); err != nil {
		return nil, fmt.Errorf("fetch ticker: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no ticker returned for %s", symbol)
	}

	t := tickers[0]
	return &model.MarketSnapshot{
		Symbol:     t.Market,
		Price:      t.TradePrice,
		ChangeRate: t.SignedChangeRate * 100,
		Volume24h:  t.AccTradeVolume,
	}, nil
}

// GetCandles retrieves up to count candles for a symbol, oldest
// first. Upbit returns newest-first; the series is reversed here so
// callers always see a stable oldest-to-newest window. Transient
// failures are retried with exponential backoff.
func (c *UpbitClient) GetCandles(ctx context.Context, symbol, granularity string, count int) ([]model.Candle, error) {
	if count > MaxCandlesLimit {
		count = MaxCandlesLimit
	}

	var endpoint string
	switch granularity {
	case service.GranularityDays:
		endpoint = "/v1/candles/days"
	case service.GranularityMinutes:
		endpoint = "/v1/candles/minutes/1"
	default:
		return nil, fmt.Errorf("unsupported candle granularity: %s", granularity)
	}

	params := url.Values{}
	params.Add("market", symbol)
	params.Add("count", strconv.Itoa(count))

	var raw []upbitCandle
	operation := func() error {
		raw = raw[:0]
		return c.get(ctx, endpoint, params, &raw)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), candleFetchRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Error("Failed to fetch candles",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.String("granularity", granularity))
		return nil, fmt.Errorf("fetch candles: %w", err)
	}

	candles := make([]model.Candle, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		k := raw[i]
		ts, err := time.Parse(upbitTimeLayout, k.CandleTimeUTC)
		if err != nil {
			return nil, fmt.Errorf("parse candle time %q: %w", k.CandleTimeUTC, err)
		}
		candles = append(candles, model.Candle{
			Symbol: k.Market,
			Time:   ts,
			Open:   k.OpeningPrice,
			High:   k.HighPrice,
			Low:    k.LowPrice,
			Close:  k.TradePrice,
			Volume: k.AccTradeVolume,
		})
	}

	return candles, nil
}

// SubmitBuy places a limit buy order and returns the venue order
// reference.
func (c *UpbitClient) SubmitBuy(ctx context.Context, symbol string, price, quantity float64) (string, error) {
	return c.submitOrder(ctx, symbol, "bid", price, quantity)
}

// SubmitSell places a limit sell order and returns the venue order
// reference.
func (c *UpbitClient) SubmitSell(ctx context.Context, symbol string, price, quantity float64) (string, error) {
	return c.submitOrder(ctx, symbol, "ask", price, quantity)
}

func (c *UpbitClient) submitOrder(ctx context.Context, symbol, side string, price, quantity float64) (string, error) {
	params := url.Values{}
	params.Add("market", symbol)
	params.Add("side", side)
	params.Add("volume", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Add("price", strconv.FormatFloat(price, 'f', -1, 64))
	params.Add("ord_type", "limit")

	var order upbitOrder
	if err := c.post(ctx, "/v1/orders", params, &order); err != nil {
		c.logger.Error("Order submission failed",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.String("side", side))
		return "", fmt.Errorf("submit %s order: %w", side, err)
	}

	return order.UUID, nil
}

// AvailableBalance returns the KRW balance available for investment.
func (c *UpbitClient) AvailableBalance(ctx context.Context) (float64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/accounts", nil, true)
	if err != nil {
		return 0, err
	}

	var accounts []upbitAccount
	if err := c.do(req, &accounts); err != nil {
		return 0, fmt.Errorf("fetch accounts: %w", err)
	}

	for _, a := range accounts {
		if a.Currency == "KRW" {
			balance, err := strconv.ParseFloat(a.Balance, 64)
			if err != nil {
				return 0, fmt.Errorf("parse balance %q: %w", a.Balance, err)
			}
			return balance, nil
		}
	}

	return 0, nil
}

func (c *UpbitClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *UpbitClient) post(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, params, true)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// newRequest builds a request, attaching an Upbit JWT when the
// endpoint requires authentication. POST bodies carry the parameters
// as JSON; the query hash covers the encoded parameter string.
func (c *UpbitClient) newRequest(ctx context.Context, method, endpoint string, params url.Values, needAuth bool) (*http.Request, error) {
	var body io.Reader
	if method != http.MethodGet && params != nil {
		fields := make(map[string]string, len(params))
		for key := range params {
			fields[key] = params.Get(key)
		}
		payload, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("marshal order body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if needAuth {
		token, err := c.authToken(params)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// authToken builds the JWT Upbit expects: access key, a UUID nonce,
// and a SHA512 hash of the query string when parameters are present.
func (c *UpbitClient) authToken(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}

	if len(params) > 0 {
		hash := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(hash[:])
		claims["query_hash_alg"] = "SHA512"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.secretKey))
}

func (c *UpbitClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("Upbit API error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("path", req.URL.Path),
			zap.String("response", string(bodyBytes)))
		return fmt.Errorf("upbit API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
