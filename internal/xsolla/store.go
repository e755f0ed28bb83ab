package xsolla

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/florianilch/xsolla-sdk/internal/authcall"
)

// VirtualCurrencyBalance is the user's balance in one virtual currency.
type VirtualCurrencyBalance struct {
	SKU         string `json:"sku"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// VirtualCurrencyBalances is the balance response.
type VirtualCurrencyBalances struct {
	Items []VirtualCurrencyBalance `json:"items"`
}

// Price is an amount in a real currency.
type Price struct {
	Amount                string `json:"amount"`
	AmountWithoutDiscount string `json:"amount_without_discount"`
	Currency              string `json:"currency"`
}

// VirtualPrice is a price in a virtual currency.
type VirtualPrice struct {
	SKU                   string `json:"sku"`
	Name                  string `json:"name"`
	Type                  string `json:"type"`
	Description           string `json:"description"`
	ImageURL              string `json:"image_url"`
	Amount                string `json:"amount"`
	AmountWithoutDiscount string `json:"amount_without_discount"`
	IsDefault             bool   `json:"is_default"`
}

// ItemGroup is a catalog group an item belongs to.
type ItemGroup struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// InventoryOptions describes how an item behaves once in the inventory.
type InventoryOptions struct {
	Consumable *struct {
		UsagesCount *int `json:"usages_count"`
	} `json:"consumable"`
}

// CartItem is an item in a cart.
type CartItem struct {
	SKU              string            `json:"sku"`
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	Description      string            `json:"description"`
	ImageURL         string            `json:"image_url"`
	IsFree           bool              `json:"is_free"`
	Groups           []ItemGroup       `json:"groups"`
	Price            *Price            `json:"price"`
	VirtualPrices    []VirtualPrice    `json:"virtual_prices"`
	InventoryOptions *InventoryOptions `json:"inventory_options"`
	Quantity         int               `json:"quantity"`
}

// Cart is the user's cart.
type Cart struct {
	CartID string     `json:"cart_id"`
	IsFree bool       `json:"is_free"`
	Price  *Price     `json:"price"`
	Items  []CartItem `json:"items"`
}

// VirtualCurrencyBalance returns the user's virtual currency balances.
func (c *Client) VirtualCurrencyBalance(ctx context.Context) (VirtualCurrencyBalances, error) {
	balances, err := authcall.Call[VirtualCurrencyBalances](ctx, c.exec,
		authorized(http.MethodGet, c.storeURL("/user/virtual_currency_balance"), nil))
	if err != nil {
		return VirtualCurrencyBalances{}, fmt.Errorf("getting virtual currency balance: %w", err)
	}
	return balances, nil
}

// Cart returns the cart with the given ID, or the current cart if cartID is
// empty.
func (c *Client) Cart(ctx context.Context, cartID string) (Cart, error) {
	endpoint := c.storeURL("/cart")
	if cartID != "" {
		endpoint = c.storeURL("/cart/%s", url.PathEscape(cartID))
	}

	cart, err := authcall.Call[Cart](ctx, c.exec, authorized(http.MethodGet, endpoint, nil))
	if err != nil {
		return Cart{}, fmt.Errorf("getting cart: %w", err)
	}
	return cart, nil
}
