package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/susegad/supplies-backend/internal/checkout"
	kafkax "github.com/susegad/supplies-backend/internal/kafka"
	"github.com/susegad/supplies-backend/internal/redisx"
	"github.com/susegad/supplies-backend/internal/shop"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (shop.Order, error)
}

type CartService interface {
	Get(ctx context.Context, customerID string) (shop.Cart, error)
	UpsertLine(ctx context.Context, customerID string, key shop.VariantKey, delta int, unitPrice decimal.Decimal, displayName string) (shop.Cart, error)
}

type OrderService interface {
	ListByCustomer(ctx context.Context, customerID string) ([]shop.Order, error)
}

type CatalogService interface {
	ListVariants(ctx context.Context) ([]shop.Variant, error)
}

type ShopHandler struct {
	Checkout CheckoutService
	Carts    CartService
	Orders   OrderService
	Catalog  CatalogService
	Producer *kafkax.Producer
	Redis    *redis.Client
	Service  string
}

func (h *ShopHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/cart/{customerID}", h.getCart)
	r.Post("/cart/update", h.updateCart)
	r.Post("/checkout", h.doCheckout)
	r.Get("/orders/{customerID}", h.listOrders)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ---- DTOs ----

type CartLineResp struct {
	VariantKey  string          `json:"variantKey"`
	DisplayName string          `json:"displayName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartResp struct {
	CustomerID string          `json:"customerId"`
	Items      []CartLineResp  `json:"items"`
	Total      decimal.Decimal `json:"total"`
}

type UpdateCartReq struct {
	CustomerID    string          `json:"customerId"`
	VariantKey    string          `json:"variantKey"`
	QuantityDelta int             `json:"quantityDelta"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	DisplayName   string          `json:"displayName"`
}

type CheckoutReq struct {
	CustomerID      string       `json:"customerId"`
	ShippingAddress shop.Address `json:"shippingAddress"`
	ShippingMethod  string       `json:"shippingMethod"`
	// Old clients still send their own total; it is never trusted, the
	// stored amount is recomputed from the line snapshots.
	TotalAmount json.RawMessage `json:"totalAmount,omitempty"`
}

type OrderItemResp struct {
	VariantKey  string          `json:"variantKey"`
	DisplayName string          `json:"displayName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

type OrderResp struct {
	OrderID         string          `json:"orderId"`
	CustomerID      string          `json:"customerId"`
	Items           []OrderItemResp `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress shop.Address    `json:"shippingAddress"`
	ShippingMethod  string          `json:"shippingMethod"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type VariantResp struct {
	VariantKey  string          `json:"variantKey"`
	ProductID   string          `json:"productId"`
	SizeLabel   string          `json:"sizeLabel"`
	DisplayName string          `json:"displayName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	StockCount  int             `json:"stockCount"`
}

func toCartResp(c shop.Cart) CartResp {
	resp := CartResp{CustomerID: c.CustomerID, Items: []CartLineResp{}, Total: c.Total()}
	for _, l := range c.Lines {
		resp.Items = append(resp.Items, CartLineResp{
			VariantKey:  l.Key.String(),
			DisplayName: l.DisplayName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
		})
	}
	return resp
}

func toOrderResp(o shop.Order) OrderResp {
	resp := OrderResp{
		OrderID:         o.ID.String(),
		CustomerID:      o.CustomerID,
		Items:           []OrderItemResp{},
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		ShippingMethod:  o.ShippingMethod,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResp{
			VariantKey:  it.Key.String(),
			DisplayName: it.DisplayName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	return resp
}

// ---- handlers ----

func (h *ShopHandler) getCart(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing customer id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.Carts.Get(ctx, customerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error fetching cart"})
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(cart))
}

func (h *ShopHandler) updateCart(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.CustomerID == "" || req.VariantKey == "" || req.QuantityDelta == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	key, err := shop.ParseVariantKey(req.VariantKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.QuantityDelta > 0 && (req.DisplayName == "" || req.UnitPrice.IsNegative()) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing price or name snapshot"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cart, err := h.Carts.UpsertLine(ctx, req.CustomerID, key, req.QuantityDelta, req.UnitPrice, req.DisplayName)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error updating cart"})
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(cart))
}

func (h *ShopHandler) doCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.CustomerID == "" || req.ShippingMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Checkout.Checkout(ctx, checkout.Request{
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  req.ShippingMethod,
	})
	if err != nil {
		code, tag := checkoutStatus(err)
		body := map[string]any{"error": err.Error(), "code": tag}
		var short *shop.InsufficientStockError
		if errors.As(err, &short) {
			body["remainingStock"] = short.Remaining
		}
		writeJSON(w, code, body)
		return
	}

	if h.Redis != nil {
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
		_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, order.Status), redisx.TTLStatusCache).Err()
		// the cached history is stale now
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCustomerOrders, order.CustomerID)).Err()
	}

	if h.Producer != nil {
		ev := shop.Envelope{
			EventID:       uuid.NewString(),
			EventType:     shop.EventOrderCreated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: order.ID.String(),
			Payload:       kafkax.MustMarshal(shop.NewOrderCreatedPayload(order)),
		}
		h.Producer.Publish(shop.PartitionKey(order.ID.String()), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusOK, toOrderResp(order))
}

func (h *ShopHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing customer id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyCustomerOrders, customerID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	orders, err := h.Orders.ListByCustomer(ctx, customerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error fetching orders"})
		return
	}
	resp := make([]OrderResp, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResp(o))
	}

	b := kafkax.MustMarshal(resp)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLListCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *ShopHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, redisx.KeyVariantList).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	variants, err := h.Catalog.ListVariants(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error fetching products"})
		return
	}
	resp := make([]VariantResp, 0, len(variants))
	for _, v := range variants {
		resp = append(resp, VariantResp{
			VariantKey:  v.Key().String(),
			ProductID:   v.ProductID.String(),
			SizeLabel:   v.SizeLabel,
			DisplayName: v.DisplayName,
			UnitPrice:   v.UnitPrice,
			StockCount:  v.StockCount,
		})
	}

	b := kafkax.MustMarshal(resp)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, redisx.KeyVariantList, b, redisx.TTLListCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func checkoutStatus(err error) (int, string) {
	var (
		notFound *shop.LineItemNotFoundError
		short    *shop.InsufficientStockError
	)
	switch {
	case errors.Is(err, shop.ErrEmptyCart):
		return http.StatusBadRequest, "EMPTY_CART"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "LINE_ITEM_NOT_FOUND"
	case errors.As(err, &short):
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, shop.ErrCheckoutConflict):
		return http.StatusConflict, "CHECKOUT_CONFLICT"
	case errors.Is(err, shop.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
