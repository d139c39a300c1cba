package observability

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tphakala/imagelab/internal/errors"
	"github.com/tphakala/imagelab/internal/logger"
	metricspkg "github.com/tphakala/imagelab/internal/observability/metrics"
)

// Endpoint serves /metrics over HTTP.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	log           logger.Logger
	wg            sync.WaitGroup
}

// NewEndpoint returns an endpoint for listenAddress. Start must be called
// to begin serving.
func NewEndpoint(listenAddress string, m *Metrics, log logger.Logger) *Endpoint {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       m,
		log:           log,
	}
}

// Start binds the listen address and serves in the background. It returns
// the bound address, useful when listening on port 0.
func (e *Endpoint) Start() (string, error) {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	e.wg.Go(func() {
		e.log.Info("Metrics endpoint starting", logger.String("address", ln.Addr().String()))
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("Metrics HTTP server error", logger.Error(err))
		}
	})
	return ln.Addr().String(), nil
}

// Stop shuts the server down and waits for it to exit.
func (e *Endpoint) Stop() error {
	if e.server == nil {
		return nil
	}
	e.log.Info("Stopping metrics endpoint")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	err := e.server.Shutdown(ctx)
	e.wg.Wait()
	return err
}
