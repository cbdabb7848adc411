// Package alpaca implements the broker boundary against the Alpaca
// trading REST API.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rustyeddy/scalper/broker"
)

const (
	// PaperURL is the URL for Alpaca's paper-trading environment
	PaperURL = "https://paper-api.alpaca.markets"
	// LiveURL is the URL for Alpaca's live trading environment
	LiveURL = "https://api.alpaca.markets"
)

// Client represents an Alpaca trading API client
type Client struct {
	baseURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a new Alpaca trading API client
func NewClient(keyID, secretKey string, paper bool) *Client {
	baseURL := LiveURL
	if paper {
		baseURL = PaperURL
	}

	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// orderRequest is the POST /v2/orders payload.
type orderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
	StopPrice   string `json:"stop_price,omitempty"`
}

// apiOrder is the subset of the order response the core needs.
type apiOrder struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	LimitPrice  string `json:"limit_price"`
	SubmittedAt string `json:"submitted_at"`
}

// apiPosition is the GET /v2/positions response element.
type apiPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
}

// SubmitLimitOrder submits a day limit order.
func (c *Client) SubmitLimitOrder(ctx context.Context, symbol string, qty int, side broker.Side, limitPrice float64) (broker.OrderHandle, error) {
	req := orderRequest{
		Symbol:      symbol,
		Qty:         strconv.Itoa(qty),
		Side:        string(side),
		Type:        "limit",
		TimeInForce: "day",
		LimitPrice:  fmt.Sprintf("%.2f", limitPrice),
	}
	return c.submitOrder(ctx, req)
}

// SubmitStopLimitOrder submits a day stop-limit sell used for
// protective stops.
func (c *Client) SubmitStopLimitOrder(ctx context.Context, symbol string, qty int, stopPrice, limitPrice float64) (broker.OrderHandle, error) {
	req := orderRequest{
		Symbol:      symbol,
		Qty:         strconv.Itoa(qty),
		Side:        string(broker.Sell),
		Type:        "stop_limit",
		TimeInForce: "day",
		StopPrice:   fmt.Sprintf("%.2f", stopPrice),
		LimitPrice:  fmt.Sprintf("%.2f", limitPrice),
	}
	return c.submitOrder(ctx, req)
}

func (c *Client) submitOrder(ctx context.Context, req orderRequest) (broker.OrderHandle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/orders", bytes.NewReader(body))
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return broker.OrderHandle{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(msg))
	}

	var order apiOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return broker.OrderHandle{}, fmt.Errorf("decode response: %w", err)
	}

	return toHandle(order)
}

// OpenPositions fetches the broker's open positions.
func (c *Client) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(msg))
	}

	var raw []apiPosition
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	positions := make([]broker.Position, 0, len(raw))
	for _, p := range raw {
		qty, err := strconv.Atoi(p.Qty)
		if err != nil {
			return nil, fmt.Errorf("parse position qty %q: %w", p.Qty, err)
		}
		avg, err := strconv.ParseFloat(p.AvgEntryPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("parse avg entry price %q: %w", p.AvgEntryPrice, err)
		}
		positions = append(positions, broker.Position{
			Symbol:        p.Symbol,
			Qty:           qty,
			AvgEntryPrice: avg,
		})
	}
	return positions, nil
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)
}

func toHandle(o apiOrder) (broker.OrderHandle, error) {
	qty, err := strconv.Atoi(o.Qty)
	if err != nil {
		return broker.OrderHandle{}, fmt.Errorf("parse order qty %q: %w", o.Qty, err)
	}

	var limit float64
	if o.LimitPrice != "" {
		limit, err = strconv.ParseFloat(o.LimitPrice, 64)
		if err != nil {
			return broker.OrderHandle{}, fmt.Errorf("parse limit price %q: %w", o.LimitPrice, err)
		}
	}

	submitted := time.Time{}
	if o.SubmittedAt != "" {
		submitted, err = time.Parse(time.RFC3339, o.SubmittedAt)
		if err != nil {
			return broker.OrderHandle{}, fmt.Errorf("parse submitted_at %q: %w", o.SubmittedAt, err)
		}
	}

	return broker.OrderHandle{
		ID:         o.ID,
		Symbol:     o.Symbol,
		Qty:        qty,
		Side:       broker.Side(o.Side),
		LimitPrice: limit,
		Submitted:  submitted,
	}, nil
}
