package handlers

import (
	"context"
	"net/http"

	"github.com/prior-it/geodata/geodata"
	"github.com/prior-it/geodata/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const BasePath = "/api/v1/geographicaldata"

// State is the dependency container every handler receives.
type State struct {
	Records  *geodata.Service
	Gatherer prometheus.Gatherer
	closers  []func(ctx context.Context)
}

// NewState creates the handler state. Closers are called in reverse order when the server shuts down.
func NewState(records *geodata.Service, gatherer prometheus.Gatherer, closers ...func(ctx context.Context)) *State {
	return &State{Records: records, Gatherer: gatherer, closers: closers}
}

func (s *State) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
}

// Register attaches every route of the API to srv.
func Register(srv *server.Server[*State], state *State) {
	srv.Get("/ping", Ping)
	if state.Gatherer != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(state.Gatherer, promhttp.HandlerOpts{}))
	}

	srv.Group(BasePath).
		Get("/", GetAll).
		Get("/paged", GetPaged).
		Get("/{id}", GetByID).
		Post("/", Create).
		Put("/{id}", Update).
		Delete("/{id}", Delete)
}

func Ping(request *server.Request, _ *State) error {
	return request.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
