package checkout

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/ai-meal-planner/backend/internal/models"
)

func TestLineItemsFromGrocery(t *testing.T) {
	items := LineItemsFromGrocery([]models.CalculatedGroceryItem{
		{ItemName: "flour", Quantity: 3.5, Unit: "cups"},
		{ItemName: "egg", Quantity: 2},
	})

	assert.Equal(t, []LineItem{
		{Name: "flour", Quantity: 3.5, Unit: "cups", DisplayText: "3.5 cups flour"},
		{Name: "egg", Quantity: 2, DisplayText: "2 egg"},
	}, items)
	assert.Empty(t, LineItemsFromGrocery(nil))
}

// TestCreateCheckout проверяет запрос к API и разбор ссылки.
func TestCreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, productsLinkPath, r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body productsLinkRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Week of 2024-01-01", body.Title)
		assert.Equal(t, "shopping_list", body.LinkType)
		assert.Len(t, body.LineItems, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"products_link_url":"https://shop.example/list/1"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", time.Second)
	link, err := client.CreateCheckout(context.Background(), "Week of 2024-01-01", []LineItem{{Name: "flour", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/list/1", link)
}

func TestCreateCheckoutAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid key"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad", time.Second)
	_, err := client.CreateCheckout(context.Background(), "t", []LineItem{{Name: "egg", Quantity: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestCreateCheckoutGuards(t *testing.T) {
	_, err := NewClient("http://localhost", "", time.Second).CreateCheckout(context.Background(), "t", []LineItem{{Name: "egg"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient("http://localhost", "key", time.Second).CreateCheckout(context.Background(), "t", nil)
	assert.ErrorIs(t, err, ErrEmptyList)
}
