package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prior-it/geodata/config"
)

type (
	ErrorHandler    func(request *Request, err error)
	NotFoundHandler func(request *Request)
)

type State interface {
	Close(ctx context.Context)
}

type Server[state State] struct {
	mux          *chi.Mux
	state        state
	logger       *slog.Logger
	errorHandler ErrorHandler
	cfg          *config.Config
}

type (
	Handler[state any]    func(request *Request, state state) error
	Middleware[state any] func(request *Request, state state) (context.Context, error)
)

// New creates a new server with the specified state object and configuration.
func New[state State](s state, cfg *config.Config) *Server[state] {
	server := &Server[state]{
		mux:          chi.NewMux(),
		state:        s,
		logger:       slog.Default(),
		errorHandler: DefaultErrorHandler,
		cfg:          cfg,
	}

	// Attach default not found handler
	server.WithNotFoundHandler(
		func(request *Request) {
			request.Problem(newProblem(request, http.StatusNotFound, titleNotFound,
				fmt.Sprintf("Endpoint %q not found", request.Path())))
		},
	)
	server.mux.MethodNotAllowed(server.handle(func(request *Request, _ state) error {
		request.Problem(newProblem(request, http.StatusMethodNotAllowed, "Method Not Allowed",
			fmt.Sprintf("Method %s is not allowed on %q", request.Request.Method, request.Path())))
		return nil
	}))

	return server
}

func (server *Server[state]) WithErrorHandler(errorHandler ErrorHandler) *Server[state] {
	server.errorHandler = errorHandler
	return server
}

func (server *Server[state]) WithNotFoundHandler(notFoundHandler NotFoundHandler) *Server[state] {
	server.mux.NotFound(server.handle(func(request *Request, _ state) error {
		notFoundHandler(request)
		return nil
	}))
	return server
}

func (server *Server[state]) WithLogger(logger *slog.Logger) *Server[state] {
	server.logger = logger
	return server
}

func (server *Server[state]) NewRequest(w http.ResponseWriter, r *http.Request) *Request {
	return &Request{
		Writer:  w,
		Request: r,
		logger:  server.logger,
		cfg:     server.cfg,
	}
}

func (server *Server[state]) handle(handler Handler[state]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request := server.NewRequest(w, r)
		err := handler(request, server.state)
		if err != nil {
			server.errorHandler(request, err)
		}
		_ = r.Body.Close()
	}
}

// Utility function that converts server middleware to a http handler
func (server *Server[state]) HandlerMiddleware(
	middleware Middleware[state],
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			request := server.NewRequest(w, r)
			ctx, err := middleware(request, server.state)
			if err != nil {
				server.errorHandler(request, err)
			} else {
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// AttachDefaultMiddleware attaches the middleware stack every API route runs behind.
// This has to be called before any route is registered.
func (server *Server[state]) AttachDefaultMiddleware() {
	server.UseStd(
		middleware.StripSlashes,
		middleware.RealIP,
		middleware.RequestID,
		HTTPLogger(server.cfg),
		middleware.Recoverer,
		SecurityHeaders,
	)
	if server.cfg.App.Debug {
		server.UseStd(ResponseTime, middleware.NoCache)
	}
	if server.cfg.Sentry.Enabled {
		sentryHandler := sentryhttp.New(sentryhttp.Options{
			Repanic:         true,
			WaitForDelivery: true,
			Timeout:         5 * time.Second, //nolint:mnd
		})
		server.UseStd(sentryHandler.Handle)
	}
	if server.cfg.App.RequestTimeout > 0 {
		server.UseStd(middleware.Timeout(
			time.Duration(server.cfg.App.RequestTimeout) * time.Second,
		))
	}
}

// Start runs the server until it fails or until the context is cancelled or an interrupt
// signal is received, after which it shuts down gracefully.
// If no listener is provided, a new TCP listener will be created on the configured host and port.
func (server *Server[state]) Start(ctx context.Context, listener net.Listener) error {
	// Handle OS signals to cancel the context
	ctxServer, stopSignal := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignal()

	host := fmt.Sprintf("%v:%v", server.cfg.App.Host, server.cfg.App.Port)
	if listener != nil {
		host = listener.Addr().String()
	}
	httpServer := &http.Server{
		Addr:              host,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	errorCh := make(chan error, 1)
	// Run the actual server
	go func() {
		server.logger.Info("Starting server", "url", server.cfg.BaseURL(), "host", host)
		var err error
		if listener != nil {
			err = httpServer.Serve(listener)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorCh <- err
		}
		close(errorCh)
	}()

	var errServer error
	select {
	case err := <-errorCh:
		errServer = err
	case <-ctxServer.Done():
		server.logger.Info("Server interrupt received")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(
		context.WithoutCancel(ctx),
		time.Duration(server.cfg.App.ShutdownTimeout)*time.Second,
	)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		server.logger.Error("Could not gracefully stop the server", "error", err)
	}
	server.Shutdown(ctxShutdown)

	return errServer
}

// Shutdown will gracefully release all server resources. You generally don't need to call this manually.
func (server *Server[state]) Shutdown(ctx context.Context) {
	sentryTimeout := max(0, time.Duration(server.cfg.App.ShutdownTimeout-1))
	sentry.Flush(sentryTimeout * time.Second)
	server.state.Close(ctx)
}

// ServeHTTP implements [net/http.Handler].
func (server *Server[state]) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.mux.ServeHTTP(writer, request)
}

// UseStd appends a stdlib middleware handler to the middleware stack.
//
// The middleware stack for any server will execute before searching for a matching
// route to a specific handler, which provides opportunity to respond early,
// change the course of the request execution, or set request-scoped values for
// the next Handler.
func (server *Server[state]) UseStd(middlewares ...func(http.Handler) http.Handler) *Server[state] {
	server.mux.Use(middlewares...)
	return server
}

// Use appends a server middleware handler to the middleware stack.
func (server *Server[state]) Use(
	middlewares ...Middleware[state],
) *Server[state] {
	for _, mi := range middlewares {
		server.mux.Use(server.HandlerMiddleware(mi))
	}
	return server
}

// Handle adds the route `pattern` that matches any http method to
// execute the `handler` [net/http.Handler].
func (server *Server[state]) Handle(pattern string, handler http.Handler) *Server[state] {
	server.mux.Handle(pattern, handler)
	return server
}

// Group attaches a subrouter along a routing path.
//
// Note that Group() does NOT return the original server but rather
// a subroute server that only serves routes along the specified Group pattern.
// If you define two Group() routes on the exact same pattern, the second group will panic.
func (server *Server[state]) Group(
	pattern string,
) *Server[state] {
	srv := Server[state](*server) //nolint:unconvert // shallow copy
	srv.mux = chi.NewMux()
	server.mux.Mount(pattern, srv.mux)
	return &srv
}

// Get adds the route `pattern` that matches a GET http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Get(
	pattern string,
	handlerFn func(request *Request, state state) error,
) *Server[state] {
	server.mux.Get(pattern, server.handle(handlerFn))
	return server
}

// Post adds the route `pattern` that matches a POST http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Post(
	pattern string,
	handlerFn func(request *Request, state state) error,
) *Server[state] {
	server.mux.Post(pattern, server.handle(handlerFn))
	return server
}

// Put adds the route `pattern` that matches a PUT http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Put(
	pattern string,
	handlerFn func(request *Request, state state) error,
) *Server[state] {
	server.mux.Put(pattern, server.handle(handlerFn))
	return server
}

// Delete adds the route `pattern` that matches a DELETE http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Delete(
	pattern string,
	handlerFn func(request *Request, state state) error,
) *Server[state] {
	server.mux.Delete(pattern, server.handle(handlerFn))
	return server
}
