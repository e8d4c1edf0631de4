// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/trvlink/pkg/frame"
)

// Frame results
const (
	ResultValid        = "valid"
	ResultCRCError     = "crc_error"
	ResultFramingError = "framing_error"
	ResultOtherError   = "other_error"
)

// LinkMetrics exports frame counters for one link.
type LinkMetrics struct {
	registry    *prometheus.Registry
	frames      *prometheus.CounterVec
	bytesRead   prometheus.Counter
	payloadSize prometheus.Histogram
}

// NewLinkMetrics creates the link metrics on a private registry.
func NewLinkMetrics() *LinkMetrics {
	m := &LinkMetrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trvlink",
			Name:      "frames_total",
			Help:      "Frames decoded from the link, by result.",
		}, []string{"result"}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trvlink",
			Name:      "read_bytes_total",
			Help:      "Bytes read from the link.",
		}),
		payloadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trvlink",
			Name:      "frame_payload_bytes",
			Help:      "Payload size of valid frames.",
			Buckets:   prometheus.LinearBuckets(8, 8, 7),
		}),
	}
	m.registry.MustRegister(m.frames, m.bytesRead, m.payloadSize)

	// Expose every result from the start so rates are defined before the first error.
	for _, r := range []string{ResultValid, ResultCRCError, ResultFramingError, ResultOtherError} {
		m.frames.WithLabelValues(r)
	}
	return m
}

// Result classifies a decode outcome.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultValid
	case frame.IsCRCError(err):
		return ResultCRCError
	case frame.IsFramingError(err):
		return ResultFramingError
	default:
		return ResultOtherError
	}
}

// ObserveFrame records a decoded frame or a decode error.
func (m *LinkMetrics) ObserveFrame(f *frame.Frame, err error) {
	m.frames.WithLabelValues(Result(err)).Inc()
	if err == nil && f != nil {
		m.payloadSize.Observe(float64(f.Length()))
	}
}

// AddBytes records n bytes read from the link.
func (m *LinkMetrics) AddBytes(n int) {
	if n > 0 {
		m.bytesRead.Add(float64(n))
	}
}

// Frames returns the counter for one result, for tests and summaries.
func (m *LinkMetrics) Frames(result string) prometheus.Counter {
	return m.frames.WithLabelValues(result)
}

// Handler serves the registry in the Prometheus text format.
func (m *LinkMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Server serves /metrics over HTTP.
type Server struct {
	server *http.Server
	port   int
}

// Start serves the link metrics at bindAddress.
func Start(bindAddress string, m *LinkMetrics) (*Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	listener, err := net.Listen("tcp", bindAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", bindAddress)
	}

	s := &Server{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: time.Second,
		},
		port: listener.Addr().(*net.TCPAddr).Port,
	}

	slog.Info(fmt.Sprintf("Serving Prometheus metrics at http://localhost:%d/metrics", s.port))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(
				"Failed to serve metrics",
				slog.Any("error", err),
			)
		}
	}()

	return s, nil
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) Close() error {
	return s.server.Close()
}
