package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

const openStackMetaDataURL = "http://169.254.169.254/openstack/latest/meta_data.json"

// configDriveLabels are the disk-by-label sentinels OpenStack and
// DigitalOcean's config-drive fallback share (spec §4.2).
var configDriveLabels = []string{
	"/dev/disk/by-label/config-2",
	"/dev/disk/by-label/CONFIG-2",
}

func configDrivePresent() bool {
	for _, path := range configDriveLabels {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

// OpenStack implements the OpenStack metadata service source (spec §4.2/§6),
// falling back to config-drive presence when the metadata service is
// unreachable.
type OpenStack struct {
	PriorityHint int
	Timeout      time.Duration
}

var _ api.MetadataSource = (*OpenStack)(nil)

func (o *OpenStack) Kind() api.MetadataSourceKind { return api.SourceOpenStack }
func (o *OpenStack) Priority() int                { return o.PriorityHint }

func (o *OpenStack) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultProbeTimeout
}

func (o *OpenStack) IsAvailable(ctx context.Context) bool {
	return checkMetadataService(ctx, openStackMetaDataURL, nil, o.timeout()) || configDrivePresent()
}

func (o *OpenStack) Load(ctx context.Context) (api.NormalizedConfig, error) {
	body, err := fetchMetadata(ctx, http.MethodGet, openStackMetaDataURL, nil, o.timeout())
	if err != nil {
		return api.NormalizedConfig{}, err
	}

	var metaData map[string]interface{}
	if err := json.Unmarshal([]byte(body), &metaData); err != nil {
		return api.NormalizedConfig{}, err
	}

	return normalize.Normalize(map[string]interface{}{"meta_data": metaData})
}
