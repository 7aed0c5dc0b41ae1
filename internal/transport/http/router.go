// Package httptransport assembles the HTTP surface: middleware chain, signed
// mutation routes, public reads, and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accountshandler "landlock/internal/accounts"
	agreementhandler "landlock/internal/agreement/handler"
	escrowhandler "landlock/internal/escrow/handler"
	identityhandler "landlock/internal/identity/handler"
	"landlock/internal/platform/metrics"
	"landlock/internal/platform/middleware"
	"landlock/internal/platform/replay"
	titlehandler "landlock/internal/title/handler"
	"landlock/pkg/platform/httputil"
	metadatamw "landlock/pkg/platform/middleware/metadata"
	requestmw "landlock/pkg/platform/middleware/request"
	requesttimemw "landlock/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Guard   replay.Guard

	Identity   *identityhandler.Handler
	Title      *titlehandler.Handler
	Agreement  *agreementhandler.Handler
	Escrow     *escrowhandler.Handler
	Accounts   *accountshandler.Handler
	HealthFunc func() error
}

// NewRouter wires the middleware chain and all endpoints. Mutations require a
// signed bearer token; reads and operational endpoints do not.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(requestmw.Middleware)
	r.Use(requesttimemw.Middleware)
	r.Use(metadatamw.ClientMetadata)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.Logging(deps.Logger))

	// Signed mutations.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSignature(deps.Guard, deps.Logger))
		deps.Identity.Register(r)
		deps.Title.Register(r)
		deps.Agreement.Register(r)
		deps.Escrow.Register(r)
	})

	// Public reads.
	r.Get("/titles/{titleNumber}", deps.Title.HandleGet)
	r.Get("/agreements/{address}", deps.Agreement.HandleGet)
	r.Get("/escrows/{address}", deps.Escrow.HandleGet)
	deps.Accounts.Register(r)

	// Operational endpoints.
	r.Get("/healthz", healthHandler(deps.HealthFunc))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
