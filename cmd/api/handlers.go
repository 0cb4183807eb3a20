package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"cartflow/pkg/cart"
	"cartflow/pkg/logger"
	"cartflow/pkg/otel"
)

const (
	sessionCookie = "cart_session"
	sessionMaxAge = 30 * 24 * time.Hour
)

type ctxKey int

const sessionKey ctxKey = 1

type api struct {
	carts  *cart.Registry
	health func(ctx context.Context) error
	log    *logger.Logger
	tracer trace.Tracer
}

// cartResponse is returned by every cart endpoint.
type cartResponse struct {
	Cart  cart.Cart `json:"cart"`
	Error string    `json:"error,omitempty"`
}

// amountRequest is the body of an amount update.
type amountRequest struct {
	Amount int `json:"amount"`
}

func (a *api) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.traceMiddleware)
	r.HandleFunc("/healthz", a.healthHandler).Methods(http.MethodGet)

	c := r.PathPrefix("/cart").Subrouter()
	c.Use(a.sessionMiddleware)
	c.HandleFunc("", a.getCartHandler).Methods(http.MethodGet)
	c.HandleFunc("/products/{id:[0-9]+}", a.addProductHandler).Methods(http.MethodPost)
	c.HandleFunc("/products/{id:[0-9]+}", a.updateAmountHandler).Methods(http.MethodPut)
	c.HandleFunc("/products/{id:[0-9]+}", a.removeProductHandler).Methods(http.MethodDelete)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// getCartHandler returns the session's cart.
// @Summary Get cart
// @Produce json
// @Success 200 {object} cartResponse
// @Failure 503 {object} cartResponse
// @Router /cart [get]
func (a *api) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getCartHandler")
	defer span.End()

	s, ok := a.store(ctx, w, r)
	if !ok {
		return
	}
	if err := s.Refresh(ctx); err != nil {
		a.log.Error(ctx, "refresh cart", "key", s.Key(), "error", err)
		writeJSON(w, http.StatusServiceUnavailable, cartResponse{Cart: s.Cart(), Error: "cart unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: s.Cart()})
}

// addProductHandler adds one unit of a product.
// @Summary Add product
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} cartResponse
// @Failure 409 {object} cartResponse
// @Failure 502 {object} cartResponse
// @Failure 503 {object} cartResponse
// @Router /cart/products/{id} [post]
func (a *api) addProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addProductHandler")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	s, ok := a.store(ctx, w, r)
	if !ok {
		return
	}
	writeResult(w, s.AddProduct(ctx, id))
}

// updateAmountHandler sets the quantity of a product.
// @Summary Update product amount
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param amount body amountRequest true "Amount"
// @Success 200 {object} cartResponse
// @Failure 404 {object} cartResponse
// @Failure 409 {object} cartResponse
// @Failure 502 {object} cartResponse
// @Failure 503 {object} cartResponse
// @Router /cart/products/{id} [put]
func (a *api) updateAmountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "updateAmountHandler")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, cartResponse{Error: "invalid body"})
		return
	}
	s, ok := a.store(ctx, w, r)
	if !ok {
		return
	}
	writeResult(w, s.UpdateProductAmount(ctx, id, req.Amount))
}

// removeProductHandler drops a product from the cart.
// @Summary Remove product
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} cartResponse
// @Failure 404 {object} cartResponse
// @Failure 503 {object} cartResponse
// @Router /cart/products/{id} [delete]
func (a *api) removeProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeProductHandler")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	s, ok := a.store(ctx, w, r)
	if !ok {
		return
	}
	writeResult(w, s.RemoveProduct(ctx, id))
}

// healthHandler pings snapshot storage.
// @Summary Health check
// @Success 200
// @Failure 503
// @Router /healthz [get]
func (a *api) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.health(ctx); err != nil {
		a.log.Warn(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) store(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	sid, _ := r.Context().Value(sessionKey).(string)
	s, err := a.carts.Get(ctx, sid)
	if err != nil {
		a.log.Error(ctx, "load cart", "session", sid, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, cartResponse{Error: "cart unavailable"})
		return nil, false
	}
	return s, true
}

// sessionMiddleware makes sure every cart request carries a session id,
// minting a cookie when the client has none.
func (a *api) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(sessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(sessionMaxAge / time.Second),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), sessionKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *api) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.ExtractHTTP(r.Context(), r.Header)
		ctx = otel.InjectTracing(ctx, a.tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, cartResponse{Error: "invalid product id"})
		return 0, false
	}
	return id, true
}

// statusFor maps a cart result to an HTTP status. Failed results are 503
// when the snapshot slot broke and 502 when the catalog did.
func statusFor(res cart.Result) int {
	switch res.Outcome {
	case cart.OK, cart.Ignored:
		return http.StatusOK
	case cart.OutOfStock:
		return http.StatusConflict
	case cart.NotFound:
		return http.StatusNotFound
	}
	if errors.Is(res.Err, cart.ErrStorage) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func writeResult(w http.ResponseWriter, res cart.Result) {
	writeJSON(w, statusFor(res), cartResponse{Cart: res.Cart, Error: res.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
