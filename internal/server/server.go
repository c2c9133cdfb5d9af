package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/atlekbai/crm_backoffice/internal/handler"
	"github.com/atlekbai/crm_backoffice/internal/metrics"
	"github.com/atlekbai/crm_backoffice/internal/middleware"
)

// NewRouter mounts the API and /metrics behind the shared middleware chain.
// Recovery runs inside Logging so panics are logged with the request id.
func NewRouter(h *handler.Handler, m *metrics.Metrics, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.Logging(logger),
		middleware.Recovery,
		middleware.Metrics(m),
	)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	h.Register(r)
	return r
}

func New(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
