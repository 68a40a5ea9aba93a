package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/example/shop-order-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Server — тонкий HTTP-слой. Владелец заказа приходит уже
// проверенным в заголовке X-Owner-ID: верификация токена — забота
// внешнего шлюза.
type Server struct {
	Router  *mux.Router
	Catalog domain.CatalogStore
	Log     *slog.Logger

	UCCreate usecase.CreateOrder
	UCCancel usecase.CancelOrder
	UCGet    usecase.GetOrder
	UCList   usecase.ListMyOrders
}

func NewServer(catalog domain.CatalogStore, create usecase.CreateOrder, cancel usecase.CancelOrder,
	get usecase.GetOrder, list usecase.ListMyOrders, log *slog.Logger) *Server {
	s := &Server{
		Router:   mux.NewRouter(),
		Catalog:  catalog,
		Log:      log,
		UCCreate: create,
		UCCancel: cancel,
		UCGet:    get,
		UCList:   list,
	}
	r := s.Router
	r.HandleFunc("/api/products", s.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products", s.handleCreateProduct).Methods(http.MethodPost)
	r.HandleFunc("/api/products/{id}", s.handleGetProduct).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id}", s.handleUpdateProduct).Methods(http.MethodPut)
	r.HandleFunc("/api/products/{id}", s.handleDeleteProduct).Methods(http.MethodDelete)
	r.HandleFunc("/api/orders", s.handleCreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/orders", s.handleListOrders).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}/cancel", s.handleCancelOrder).Methods(http.MethodPost)
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"status": "success", "data": data})
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthorization):
		code = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrTransient):
		code = http.StatusServiceUnavailable
	}
	status := "error"
	if code < http.StatusInternalServerError {
		status = "fail"
	}
	writeJSON(w, code, map[string]any{"status": status, "message": err.Error()})
}

func ownerID(r *http.Request) string { return r.Header.Get("X-Owner-ID") }

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := ownerID(r)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "fail", "message": "missing X-Owner-ID"})
		return "", false
	}
	return id, true
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", 10)
	pp, err := s.Catalog.List(r.Context(), page, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	totalPages := (pp.Total + limit - 1) / limit
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"results":    len(pp.Products),
		"total":      pp.Total,
		"page":       page,
		"totalPages": totalPages,
		"data":       map[string]any{"products": pp.Products},
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"product": p})
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, domain.ErrValidation)
		return
	}
	if p.Name == "" {
		writeErr(w, domain.ErrValidation)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.Catalog.Create(r.Context(), &p); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"product": p})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, domain.ErrValidation)
		return
	}
	p.ID = mux.Vars(r)["id"]
	if err := s.Catalog.Update(r.Context(), p); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"product": p})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var body struct {
		Items []usecase.ItemRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, domain.ErrValidation)
		return
	}
	order, err := s.UCCreate.Execute(r.Context(), owner, body.Items)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"order": order})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	orders, err := s.UCList.Execute(r.Context(), owner)
	if err != nil {
		writeErr(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"results": len(orders),
		"data":    map[string]any{"orders": orders},
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	order, err := s.UCGet.Execute(r.Context(), mux.Vars(r)["id"], owner)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"order": order})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	order, err := s.UCCancel.Execute(r.Context(), mux.Vars(r)["id"], owner)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"order": order})
}
