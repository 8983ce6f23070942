package metrics

import (
	"fmt"
	"io"
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

// Counters shared by every client and server of the process
var (
	FramesEncoded = metrics.NewCounter("dipc_frames_encoded_total")
	FramesDecoded = metrics.NewCounter("dipc_frames_decoded_total")
	FrameErrors   = metrics.NewCounter("dipc_frame_parse_errors_total")
	Overflows     = metrics.NewCounter("dipc_buffer_overflows_total")

	ClientConnects   = metrics.NewCounter("dipc_client_connects_total")
	ClientRetries    = metrics.NewCounter("dipc_client_retries_total")
	ClientDestroyed  = metrics.NewCounter("dipc_client_destroyed_total")
	SessionsAccepted = metrics.NewCounter("dipc_server_sessions_accepted_total")
	SessionsRejected = metrics.NewCounter("dipc_server_sessions_rejected_total")
	SessionsClosed   = metrics.NewCounter("dipc_server_sessions_closed_total")
	Broadcasts       = metrics.NewCounter("dipc_server_broadcasts_total")
	Datagrams        = metrics.NewCounter("dipc_server_datagrams_total")
)

// BytesWritten returns the counter of bytes written for the given transport name
func BytesWritten(transport string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`dipc_bytes_written_total{transport=%q}`, transport))
}

// BytesRead returns the counter of bytes read for the given transport name
func BytesRead(transport string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`dipc_bytes_read_total{transport=%q}`, transport))
}

var (
	gaugesMu sync.Mutex
	gauges   = map[string]uint64{} // gauge name -> registration owning it
	gaugeGen uint64
)

// RegisterActiveSessions exposes a gauge reporting the live session count of a
// server. A later registration under the same name replaces the earlier one.
// The returned function removes the gauge unless it was replaced since.
func RegisterActiveSessions(name string, fn func() int) (unregister func()) {
	key := fmt.Sprintf(`dipc_server_sessions_active{server=%q}`, name)

	gaugesMu.Lock()
	defer gaugesMu.Unlock()

	metrics.UnregisterMetric(key)
	metrics.NewGauge(key, func() float64 {
		return float64(fn())
	})
	gaugeGen++
	gen := gaugeGen
	gauges[key] = gen

	return func() {
		gaugesMu.Lock()
		defer gaugesMu.Unlock()

		if gauges[key] == gen {
			metrics.UnregisterMetric(key)
			delete(gauges, key)
		}
	}
}

// WritePrometheus writes all metrics in Prometheus text format
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
