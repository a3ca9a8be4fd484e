package events

import (
	"sysconfigd/pkg/logging"
)

// Fields carries the subject of an event: which plugin or path it concerns,
// and any extra detail for the log line.
type Fields struct {
	PluginID string
	Target   string // dotted path, subscriber id, or source kind, depending on Reason
	Details  string
}

// Recorder emits lifecycle events for one subsystem through structured
// logging. The teacher records events against a Kubernetes object with a
// client-go EventRecorder; this system has no Kubernetes object to attach
// events to, so Recorder logs them directly via pkg/logging instead.
type Recorder struct {
	subsystem string
}

// NewRecorder creates a Recorder that tags every event with subsystem
// (e.g. "Registry", "Orchestrator", "Facade", "Provisioning").
func NewRecorder(subsystem string) *Recorder {
	return &Recorder{subsystem: subsystem}
}

// Record logs reason at the severity TypeOf(reason) assigns it, with fields
// describing the subject.
func (r *Recorder) Record(reason Reason, fields Fields) {
	switch TypeOf(reason) {
	case TypeWarning:
		logging.Warn(r.subsystem, "%s plugin=%q target=%q details=%q", reason, fields.PluginID, fields.Target, fields.Details)
	default:
		logging.Info(r.subsystem, "%s plugin=%q target=%q details=%q", reason, fields.PluginID, fields.Target, fields.Details)
	}
}
