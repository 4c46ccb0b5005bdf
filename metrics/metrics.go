// Package metrics runs the Prometheus exposition sidecar. Counters are
// registered where they are incremented (see api/nsmhandler); this package
// only owns the listener that serves them.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the process metrics on a dedicated listener, separate
// from the API address.
type MetricsServer struct {
	name string
	srv  *http.Server
}

// New creates a metrics server for the given listen address. The name is
// exported as a constant `<name>_up` gauge so dashboards can tell services
// apart.
func New(name, addr string) (*MetricsServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("metrics server needs a listen address")
	}

	metrics.GetOrCreateGauge(fmt.Sprintf(`%s_up`, name), func() float64 { return 1 })

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		name: name,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint until the server is shut
// down.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
