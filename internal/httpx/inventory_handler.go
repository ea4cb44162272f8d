package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stockcore/internal/redisx"
	"stockcore/internal/stock"
)

type InventoryHandler struct {
	Service *stock.Service
	Redis   *redis.Client
	Lg      *zap.Logger
}

type adjustStockReq struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id"`
	Delta       int    `json:"delta"`
	Reason      string `json:"reason,omitempty"`
}

type reserveStockReq struct {
	OrderID   string              `json:"order_id"`
	Items     []stock.ReserveItem `json:"items"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

type movementsResp struct {
	Movements []stock.Movement `json:"movements"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Get("/stock", h.getStock)
	r.Post("/stock/adjust", h.adjustStock)
	r.Get("/stock/{id}/movements", h.listMovements)
	r.Post("/reservations", h.reserveStock)
	r.Delete("/reservations/{orderID}", h.releaseStock)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stock.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, stock.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.Lg.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *InventoryHandler) getStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID := q.Get("product_id")
	variantID := q.Get("variant_id")
	warehouseID := q.Get("warehouse_id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := stockCacheKey(productID, variantID, warehouseID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	rec, err := h.Service.GetStock(ctx, productID, variantID, warehouseID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	b, _ := json.Marshal(rec)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStockCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *InventoryHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.WarehouseID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.UpdateStock(ctx, req.ProductID, req.VariantID, req.WarehouseID, req.Delta, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	_ = h.Redis.Del(ctx, stockCacheKey(req.ProductID, req.VariantID, req.WarehouseID)).Err()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *InventoryHandler) reserveStock(w http.ResponseWriter, r *http.Request) {
	var req reserveStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OrderID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var expiresAt time.Time
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}
	out, err := h.Service.ReserveStock(ctx, req.OrderID, req.Items, expiresAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	for _, it := range req.Items {
		_ = h.Redis.Del(ctx, stockCacheKey(it.ProductID, it.VariantID, it.WarehouseID)).Err()
	}
	// partial or total line failure is still a handled request
	writeJSON(w, http.StatusOK, out)
}

func (h *InventoryHandler) releaseStock(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.ReleaseStock(ctx, orderID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *InventoryHandler) listMovements(w http.ResponseWriter, r *http.Request) {
	stockID := chi.URLParam(r, "id")
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	movements, err := h.Service.ListMovements(ctx, stockID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if movements == nil {
		movements = []stock.Movement{}
	}
	writeJSON(w, http.StatusOK, movementsResp{Movements: movements, Page: page, Limit: limit})
}

func stockCacheKey(productID, variantID, warehouseID string) string {
	if variantID == "" {
		variantID = "-"
	}
	return fmt.Sprintf(redisx.KeyStock, productID, variantID, warehouseID)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
