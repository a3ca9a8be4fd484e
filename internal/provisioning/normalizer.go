package provisioning

import (
	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

// Normalize implements the Schema Normalizer (spec §4.3). It delegates to
// internal/provisioning/normalize so that internal/provisioning/sources can
// share the same reduction without an import cycle (sources produce raw
// payloads that Normalize reduces to api.NormalizedConfig).
func Normalize(raw map[string]interface{}) (api.NormalizedConfig, error) {
	return normalize.Normalize(raw)
}
