// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestRelayAttributes(t *testing.T) {
	attrs := RelayAttributes("rtsp", "")
	assert.Equal(t, []attribute.KeyValue{attribute.String(RelayTransportKey, "rtsp")}, attrs)

	attrs = RelayAttributes("multicast", "239.3.1.1:8000")
	assert.Len(t, attrs, 2)
	assert.Equal(t, "239.3.1.1:8000", attrs[1].Value.AsString())
}

func TestArtifactAttributes(t *testing.T) {
	attrs := ArtifactAttributes("playlist", 12, true)
	assert.Equal(t, attribute.String(ArtifactKindKey, "playlist"), attrs[0])
	assert.Equal(t, int64(12), attrs[1].Value.AsInt64())
	assert.True(t, attrs[2].Value.AsBool())
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("upstream")
	assert.True(t, attrs[0].Value.AsBool())
	assert.Equal(t, "upstream", attrs[1].Value.AsString())
}
