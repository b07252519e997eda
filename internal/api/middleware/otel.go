// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips health and scrape endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter names spans by route. Relay paths carry upstream
// locators, which are kept out of span names.
func spanNameFormatter(_ string, r *http.Request) string {
	return r.Method + " " + routeLabel(r.URL.Path)
}

func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/rtsp/"):
		return "/rtsp/*"
	case strings.HasPrefix(path, "/udp/"):
		return "/udp/{addr}"
	case strings.HasPrefix(path, "/logo/"):
		return "/logo/{id}.png"
	case strings.HasPrefix(path, "/api/mappings/"):
		return "/api/mappings/{from}"
	}
	return path
}
