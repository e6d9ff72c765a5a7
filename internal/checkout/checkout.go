package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"example.com/ai-meal-planner/backend/internal/models"
)

const productsLinkPath = "/idp/v1/products/products_link"

var (
	ErrNotConfigured = errors.New("checkout is not configured")
	ErrEmptyList     = errors.New("grocery list is empty")
)

type LineItem struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	DisplayText string  `json:"display_text,omitempty"`
}

type productsLinkRequest struct {
	Title     string     `json:"title"`
	LinkType  string     `json:"link_type"`
	LineItems []LineItem `json:"line_items"`
}

type productsLinkResponse struct {
	URL string `json:"products_link_url"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client creates shopping-list links on the grocery partner's products-link API.
type Client struct {
	client *resty.Client
	apiKey string
}

// NewClient создает клиент оформления заказа; без ключа API клиент отключен.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey)

	return &Client{client: client, apiKey: apiKey}
}

func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.apiKey) != ""
}

// CreateCheckout отправляет список покупок и возвращает ссылку на корзину.
func (c *Client) CreateCheckout(ctx context.Context, title string, items []LineItem) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if len(items) == 0 {
		return "", ErrEmptyList
	}

	var result productsLinkResponse
	var apiErr errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(productsLinkRequest{Title: title, LinkType: "shopping_list", LineItems: items}).
		SetResult(&result).
		SetError(&apiErr).
		Post(productsLinkPath)
	if err != nil {
		return "", fmt.Errorf("checkout request: %w", err)
	}

	if resp.IsError() {
		if apiErr.Error != nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("checkout api error: %s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("checkout api error: status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}

	if strings.TrimSpace(result.URL) == "" {
		return "", errors.New("checkout response missing link")
	}

	return result.URL, nil
}

// LineItemsFromGrocery переносит строки списка покупок в позиции корзины один к одному.
func LineItemsFromGrocery(items []models.CalculatedGroceryItem) []LineItem {
	lineItems := make([]LineItem, 0, len(items))
	for _, item := range items {
		display := strconv.FormatFloat(item.Quantity, 'f', -1, 64)
		if item.Unit != "" {
			display += " " + item.Unit
		}
		lineItems = append(lineItems, LineItem{
			Name:        item.ItemName,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			DisplayText: display + " " + item.ItemName,
		})
	}
	return lineItems
}
