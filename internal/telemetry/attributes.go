// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the proxy.
const (
	PortalOperationKey = "portal.operation"
	PortalChannelsKey  = "portal.channels"

	RelayTransportKey = "relay.transport"
	RelayTargetKey    = "relay.target"
	RelayBytesKey     = "relay.bytes"

	ArtifactKindKey     = "artifact.kind"
	ArtifactFallbackKey = "artifact.fallback"
	ArtifactChannelsKey = "artifact.channels"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// PortalAttributes describes a portal round trip.
func PortalAttributes(operation string, channels int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PortalOperationKey, operation),
		attribute.Int(PortalChannelsKey, channels),
	}
}

// RelayAttributes describes a stream relay. Empty target is omitted.
func RelayAttributes(transport, target string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(RelayTransportKey, transport)}
	if target != "" {
		attrs = append(attrs, attribute.String(RelayTargetKey, target))
	}
	return attrs
}

// ArtifactAttributes describes a playlist or guide build.
func ArtifactAttributes(kind string, channels int, fallback bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ArtifactKindKey, kind),
		attribute.Int(ArtifactChannelsKey, channels),
		attribute.Bool(ArtifactFallbackKey, fallback),
	}
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
