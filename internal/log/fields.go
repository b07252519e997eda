// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldTraceID   = "trace_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Catalog fields
	FieldChannelID    = "channel_id"
	FieldChannelName  = "channel_name"
	FieldChannelCount = "channels"
	FieldProgramCount = "programs"

	// Relay fields
	FieldTransport = "transport"
	FieldTarget    = "target"
	FieldInterface = "interface"
	FieldBytes     = "bytes"
	FieldDropped   = "dropped"
	FieldSessionID = "session_id"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// HTTP fields
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
)
