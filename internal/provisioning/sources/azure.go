package sources

import (
	"context"
	"net/http"
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

const azureMetadataBase = "http://169.254.169.254/metadata/instance"
const azureAPIVersion = "api-version=2021-02-01&format=text"

var azureHeaders = map[string]string{"Metadata": "true"}

// Azure implements the Azure Instance Metadata Service source (spec §4.2/§6).
type Azure struct {
	PriorityHint int
	Timeout      time.Duration
}

var _ api.MetadataSource = (*Azure)(nil)

func (a *Azure) Kind() api.MetadataSourceKind { return api.SourceAzure }
func (a *Azure) Priority() int                { return a.PriorityHint }

func (a *Azure) timeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return DefaultProbeTimeout
}

func (a *Azure) endpoint(suffix string) string {
	return azureMetadataBase + suffix + "?" + azureAPIVersion
}

func (a *Azure) IsAvailable(ctx context.Context) bool {
	return checkMetadataService(ctx, a.endpoint(""), azureHeaders, a.timeout())
}

func (a *Azure) Load(ctx context.Context) (api.NormalizedConfig, error) {
	metaData := map[string]interface{}{}
	for field, suffix := range map[string]string{
		"vm_id":          "/compute/vmId",
		"vm_size":        "/compute/vmSize",
		"location":       "/compute/location",
		"resource_group": "/compute/resourceGroupName",
	} {
		if value, err := fetchMetadata(ctx, http.MethodGet, a.endpoint(suffix), azureHeaders, a.timeout()); err == nil {
			metaData[field] = value
		}
	}

	raw := map[string]interface{}{"meta_data": metaData}

	// Normalize's user-data handling already base64-decodes user_data_base64
	// into user_data when valid UTF-8 (spec §4.3), so customData is passed
	// through as-is rather than decoded twice.
	if customData, err := fetchMetadata(ctx, http.MethodGet, a.endpoint("/compute/customData"), azureHeaders, a.timeout()); err == nil && customData != "" {
		raw["user_data_base64"] = customData
	}

	return normalize.Normalize(raw)
}
