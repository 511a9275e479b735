package prometheus

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestServiceServesRegistry(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "test",
		Name:      "service_requests",
		Help:      "counter registered by the test",
	})
	PromRegistry().MustRegister(counter)
	defer PromRegistry().Unregister(counter)
	counter.Add(3)

	svc := NewService("127.0.0.1:0", Handler{
		Path: "/healthz",
		Handler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	require.NoError(t, svc.Start())
	defer svc.Stop()

	resp, err := http.Get("http://" + svc.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), "test_service_requests 3")

	resp, err = http.Get("http://" + svc.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, svc.Status())
}
