package sources

import (
	"context"
	"net/http"
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

const gcpMetadataBase = "http://metadata.google.internal/computeMetadata/v1/"

var gcpHeaders = map[string]string{"Metadata-Flavor": "Google"}

// GCP implements the Google Compute Engine metadata source (spec §4.2/§6).
type GCP struct {
	PriorityHint int
	Timeout      time.Duration
}

var _ api.MetadataSource = (*GCP)(nil)

func (g *GCP) Kind() api.MetadataSourceKind { return api.SourceGCP }
func (g *GCP) Priority() int                { return g.PriorityHint }

func (g *GCP) timeout() time.Duration {
	if g.Timeout > 0 {
		return g.Timeout
	}
	return DefaultProbeTimeout
}

func (g *GCP) IsAvailable(ctx context.Context) bool {
	return checkMetadataService(ctx, gcpMetadataBase+"instance/id", gcpHeaders, g.timeout())
}

func (g *GCP) Load(ctx context.Context) (api.NormalizedConfig, error) {
	metaData := map[string]interface{}{}
	for _, path := range []string{"instance/id", "instance/machine-type", "instance/zone", "instance/hostname"} {
		if value, err := fetchMetadata(ctx, http.MethodGet, gcpMetadataBase+path, gcpHeaders, g.timeout()); err == nil {
			metaData[path] = value
		}
	}

	raw := map[string]interface{}{"meta_data": metaData}
	if startupScript, err := fetchMetadata(ctx, http.MethodGet, gcpMetadataBase+"instance/attributes/startup-script", gcpHeaders, g.timeout()); err == nil {
		raw["user_data"] = startupScript
	}
	if hostname, ok := metaData["instance/hostname"].(string); ok {
		raw["hostname"] = hostname
	}

	return normalize.Normalize(raw)
}
