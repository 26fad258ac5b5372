// Package web wires the JSON API handlers into an HTTP router and server.
package web

import (
	"net/http"

	"github.com/lltshop/shoppost/internal/auth"
	"github.com/lltshop/shoppost/internal/handlers"
)

// RouterDeps holds the handlers the router serves
type RouterDeps struct {
	Products   *handlers.ProductsHandler
	Categories *handlers.CategoriesHandler
	Captions   *handlers.CaptionsHandler
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler

	// LoginLimiter throttles login attempts per client IP; defaults to auth.DefaultLoginRateLimiter
	LoginLimiter *auth.RateLimiter
}

// Router is the HTTP router for the admin API
type Router struct {
	mux     *http.ServeMux
	deps    RouterDeps
	handler http.Handler
}

// NewRouter creates a router with all routes configured
func NewRouter(deps RouterDeps) *Router {
	if deps.LoginLimiter == nil {
		deps.LoginLimiter = auth.DefaultLoginRateLimiter()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthHandler(nil)
	}

	r := &Router{
		mux:  http.NewServeMux(),
		deps: deps,
	}
	r.setupRoutes()
	r.handler = handlers.Recover(r.mux)
	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// protected requires a valid admin bearer token
func protected(h http.HandlerFunc) http.Handler {
	return auth.JWTMiddleware(h)
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("GET /healthz", r.deps.Health.Healthz)

	if h := r.deps.Auth; h != nil {
		r.mux.Handle("POST /api/auth/login", auth.RateLimitMiddleware(r.deps.LoginLimiter)(http.HandlerFunc(h.Login)))
	}

	// Products: reads are public, writes need a token
	if h := r.deps.Products; h != nil {
		r.mux.HandleFunc("GET /api/products", h.List)
		r.mux.HandleFunc("GET /api/products/{id}", h.Get)
		r.mux.HandleFunc("GET /api/products/{id}/history", h.History)
		r.mux.Handle("POST /api/products", protected(h.Create))
		r.mux.Handle("PUT /api/products/{id}", protected(h.Update))
		r.mux.Handle("DELETE /api/products/{id}", protected(h.Delete))
		r.mux.Handle("POST /api/products/{id}/republish", protected(h.Republish))
		r.mux.Handle("PUT /api/products/{id}/categories", protected(h.UpdateCategories))
	}

	if h := r.deps.Categories; h != nil {
		r.mux.HandleFunc("GET /api/categories", h.List)
		r.mux.HandleFunc("GET /api/categories/{id}", h.Get)
		r.mux.HandleFunc("GET /api/categories/slug/{slug}", h.GetBySlug)
		r.mux.Handle("POST /api/categories", protected(h.Create))
		r.mux.Handle("PUT /api/categories/{id}", protected(h.Update))
		r.mux.Handle("DELETE /api/categories/{id}", protected(h.Delete))
	}

	if h := r.deps.Captions; h != nil {
		r.mux.Handle("POST /api/captions/preview", protected(h.Preview))
		r.mux.Handle("POST /api/ai/description", protected(h.RewriteDescription))
	}

	r.mux.HandleFunc("/", handlers.NotFound)
}
