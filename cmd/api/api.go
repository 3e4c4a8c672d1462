package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/domain/carts"
	"storefront/internal/domain/storage"
	"storefront/internal/params"
	"storefront/internal/ratelimiter"
	"storefront/internal/remote"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	carts         *carts.Registry
	checkout      *checkout.Service
	catalog       *remote.Catalog
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   *ratelimiter.FixedWindowRateLimiter
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	cart        cartConfig
	auth        authConfig
	remote      remoteConfig
	cors        corsConfig
	rateLimiter ratelimiter.Config
	pages       params.Limits
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	iss    string
}

type basicConfig struct {
	user     string
	passHash string
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
}

type cartConfig struct {
	store    string
	redis    string
	ttl      time.Duration
	idleTime time.Duration
}

type remoteConfig struct {
	orderURL        string
	catalogURL      string
	token           string
	checkoutTimeout time.Duration
	refSecret       string
}

type corsConfig struct {
	allowedOrigins []string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.cors.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(app.RateLimiterMiddleware)

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Get("/dashboard", app.dashboardHandler)

			r.Route("/store", func(r chi.Router) {
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", app.getCartHandler)
					r.Delete("/", app.clearCartHandler)

					r.Post("/items", app.addCartItemHandler)
					r.Post("/items/remove", app.removeCartItemsHandler)
					r.Patch("/items/{key}", app.updateCartItemQtyHandler)
					r.Delete("/items/{key}", app.removeCartItemHandler)
				})

				r.Post("/checkout", app.checkoutHandler)
				r.Get("/orders", app.listMyOrdersHandler)
				r.Get("/orders/{reference}", app.getMyOrderHandler)
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
