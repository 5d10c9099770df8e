// Package exchange is the typed HTTP client for the stock exchange API.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// APIError is a non-success response from the exchange. Statuses in the
// 4xx range are business-rule rejections, a normal outcome of
// probabilistic order generation.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange returned %d: %s", e.Status, e.Body)
}

// IsRejection reports whether err is a business-rule rejection rather
// than a transport failure.
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// User is the account identity embedded in auth responses.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// LoginResponse carries the session token held for the agent's lifetime.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RegisterResponse is returned with status 201 on account creation.
type RegisterResponse struct {
	User User `json:"user"`
}

// Stock is one entry of the stock list. Numeric fields are decoded as
// decimals because the exchange serializes them both quoted and bare.
type Stock struct {
	ID            int             `json:"id"`
	Symbol        string          `json:"symbol"`
	IsActive      bool            `json:"is_active"`
	LastPrice     decimal.Decimal `json:"lastPrice"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	ARA           decimal.Decimal `json:"ara"`
	ARB           decimal.Decimal `json:"arb"`
}

// Level is one resting price level of an orderbook side.
type Level struct {
	Price decimal.Decimal `json:"price"`
}

// Orderbook holds both sides sorted best-first.
type Orderbook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// PortfolioStock is one authoritative position.
type PortfolioStock struct {
	Symbol        string          `json:"symbol"`
	QuantityOwned int64           `json:"quantity_owned"`
	AvgBuyPrice   decimal.Decimal `json:"avg_buy_price"`
}

// Portfolio is the authoritative account state.
type Portfolio struct {
	BalanceRDN decimal.Decimal  `json:"balance_rdn"`
	Stocks     []PortfolioStock `json:"stocks"`
}

// OrderRequest is the payload for POST /orders.
type OrderRequest struct {
	Symbol   string `json:"symbol"`
	Type     string `json:"type"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Client talks to the exchange REST API. It holds no session state;
// authenticated calls take the caller's bearer token.
type Client struct {
	http *resty.Client
}

// New creates a client for the given API base URL.
func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	return &Client{http: c}
}

func apiErr(resp *resty.Response) error {
	return &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", username, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// Register creates an account. The exchange answers 201 on success.
func (c *Client) Register(ctx context.Context, username, password, fullName string) (*RegisterResponse, error) {
	var out RegisterResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"username": username,
			"password": password,
			"fullName": fullName,
		}).
		SetResult(&out).
		Post("/auth/register")
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// Stocks fetches the full stock list.
func (c *Client) Stocks(ctx context.Context) ([]Stock, error) {
	var out []Stock
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/stocks")
	if err != nil {
		return nil, fmt.Errorf("fetch stocks: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return out, nil
}

// Orderbook fetches both sides of a symbol's book, sorted best-first.
func (c *Client) Orderbook(ctx context.Context, symbol string) (*Orderbook, error) {
	var out Orderbook
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/market/stocks/%s/orderbook", symbol))
	if err != nil {
		return nil, fmt.Errorf("fetch orderbook %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// Portfolio fetches the authoritative cash balance and holdings.
func (c *Client) Portfolio(ctx context.Context, token string) (*Portfolio, error) {
	var out Portfolio
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/portfolio")
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// PlaceOrder submits a limit order. A nil return means the exchange
// accepted it; rejections come back as *APIError.
func (c *Client) PlaceOrder(ctx context.Context, token string, req OrderRequest) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		Post("/orders")
	if err != nil {
		return fmt.Errorf("place order %s %s: %w", req.Type, req.Symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return apiErr(resp)
	}
	return nil
}

// SetBalance adds cash to a user's account. Admin only.
func (c *Client) SetBalance(ctx context.Context, adminToken string, userID int, amount int64, reason string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(adminToken).
		SetBody(map[string]interface{}{"amount": amount, "reason": reason}).
		Put(fmt.Sprintf("/admin/users/%d/balance", userID))
	if err != nil {
		return fmt.Errorf("fund balance user %d: %w", userID, err)
	}
	if resp.IsError() {
		return apiErr(resp)
	}
	return nil
}

// GrantShares issues lots of a stock into a user's portfolio. Admin only.
func (c *Client) GrantShares(ctx context.Context, adminToken string, userID, stockID int, amount int64, reason string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(adminToken).
		SetBody(map[string]interface{}{"amount": amount, "reason": reason}).
		Put(fmt.Sprintf("/admin/users/%d/portfolio/%d", userID, stockID))
	if err != nil {
		return fmt.Errorf("grant shares user %d stock %d: %w", userID, stockID, err)
	}
	if resp.IsError() {
		return apiErr(resp)
	}
	return nil
}
