package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

const digitalOceanMetadataURL = "http://169.254.169.254/metadata/v1/"
const digitalOceanMetadataJSON = "http://169.254.169.254/metadata/v1.json"

// DigitalOcean implements the DigitalOcean droplet metadata source (spec
// §4.2/§6), checking the config-drive ISO label before the HTTP service.
type DigitalOcean struct {
	PriorityHint int
	Timeout      time.Duration
}

var _ api.MetadataSource = (*DigitalOcean)(nil)

func (d *DigitalOcean) Kind() api.MetadataSourceKind { return api.SourceDigitalOcean }
func (d *DigitalOcean) Priority() int                { return d.PriorityHint }

func (d *DigitalOcean) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return DefaultProbeTimeout
}

func (d *DigitalOcean) IsAvailable(ctx context.Context) bool {
	return configDrivePresent() || checkMetadataService(ctx, digitalOceanMetadataURL, nil, d.timeout())
}

func (d *DigitalOcean) Load(ctx context.Context) (api.NormalizedConfig, error) {
	body, err := fetchMetadata(ctx, http.MethodGet, digitalOceanMetadataJSON, nil, d.timeout())
	if err != nil {
		return api.NormalizedConfig{}, err
	}

	var metaData map[string]interface{}
	if err := json.Unmarshal([]byte(body), &metaData); err != nil {
		return api.NormalizedConfig{}, err
	}

	raw := map[string]interface{}{"meta_data": metaData}
	if hostname, ok := metaData["hostname"].(string); ok {
		raw["hostname"] = hostname
	}
	if userData, ok := metaData["user_data"].(string); ok {
		raw["user_data"] = userData
	}

	return normalize.Normalize(raw)
}
