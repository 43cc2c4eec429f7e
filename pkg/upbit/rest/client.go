// Package rest is the authenticated Upbit private API client.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tickflow/internal/model"
)

// APIError is Upbit's structured error body.
type APIError struct {
	Status  int
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upbit api error (%d %s): %s", e.Status, e.Name, e.Message)
}

type Client struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

func NewClient(rawURL, accessKey, secretKey string) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL: %s", rawURL)
	}
	return &Client{
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		accessKey:  accessKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// do signs and executes one request. Query parameters ride the URL for
// GET/DELETE and a form body for POST; either way the same encoded string is
// what the token hashes.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, result interface{}) error {
	query := params.Encode()

	var (
		reqURL = c.baseURL + path
		body   io.Reader
	)
	if query != "" {
		if method == http.MethodPost {
			body = strings.NewReader(query)
		} else {
			reqURL += "?" + query
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token, err := authToken(c.accessKey, c.secretKey, query)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	req.Header.Set("Authorization", token)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	byteData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(byteData, &errBody); err == nil && errBody.Error.Message != "" {
			errBody.Error.Status = resp.StatusCode
			return &errBody.Error
		}
		return fmt.Errorf("received non-OK HTTP status: %s", resp.Status)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(byteData, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// OwnedBalances 내 계좌 전체 잔고
func (c *Client) OwnedBalances(ctx context.Context) ([]model.CoinBalance, error) {
	var payload []accountPayload
	if err := c.do(ctx, http.MethodGet, "/v1/accounts", nil, &payload); err != nil {
		return nil, err
	}
	balances := make([]model.CoinBalance, 0, len(payload))
	for _, p := range payload {
		balances = append(balances, p.toModel())
	}
	return balances, nil
}

// OrderableInfo 종목별 주문 가능 정보
func (c *Client) OrderableInfo(ctx context.Context, market string) (*model.OrderableInfo, error) {
	params := url.Values{"market": {market}}
	var payload chancePayload
	if err := c.do(ctx, http.MethodGet, "/v1/orders/chance", params, &payload); err != nil {
		return nil, err
	}
	return payload.toModel(), nil
}

// PlaceOrder 주문하기
func (c *Client) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if !req.Side.Valid() {
		return nil, fmt.Errorf("invalid order side %q", req.Side)
	}
	params := url.Values{
		"market":   {req.Market},
		"side":     {string(req.Side)},
		"volume":   {formatFloat(req.Volume)},
		"price":    {formatFloat(req.Price)},
		"ord_type": {string(req.OrdType)},
	}
	var payload orderPayload
	if err := c.do(ctx, http.MethodPost, "/v1/orders", params, &payload); err != nil {
		return nil, err
	}
	order := payload.toModel()
	return &order, nil
}

// OrderDetail 개별 주문 조회 (체결 내역 포함)
func (c *Client) OrderDetail(ctx context.Context, id string) (*model.Order, error) {
	params := url.Values{"uuid": {id}}
	var payload orderPayload
	if err := c.do(ctx, http.MethodGet, "/v1/order", params, &payload); err != nil {
		return nil, err
	}
	order := payload.toModel()
	return &order, nil
}

// OpenOrders 미체결 주문 목록
func (c *Client) OpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	params := url.Values{
		"market": {market},
		"state":  {string(model.OrderStateWait)},
	}
	var payload []orderPayload
	if err := c.do(ctx, http.MethodGet, "/v1/orders", params, &payload); err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(payload))
	for _, p := range payload {
		orders = append(orders, p.toModel())
	}
	return orders, nil
}

// CancelOrder 주문 취소 접수
func (c *Client) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	params := url.Values{"uuid": {id}}
	var payload orderPayload
	if err := c.do(ctx, http.MethodDelete, "/v1/order", params, &payload); err != nil {
		return nil, err
	}
	order := payload.toModel()
	return &order, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
