// Package events defines the event-reason taxonomy for sysconfigd's
// lifecycle and state-change events, and a Recorder that emits them through
// structured logging rather than a Kubernetes event recorder.
package events
