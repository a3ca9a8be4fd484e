package sources

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

// mdataGetPaths are where SmartOS's mdata-get binary is found, depending
// on whether the zone runs inside the global zone's /native path (spec
// §4.2: "presence of mdata-get binary").
var mdataGetPaths = []string{"/usr/sbin/mdata-get", "/native/usr/sbin/mdata-get"}

func findMdataGet() (string, bool) {
	for _, path := range mdataGetPaths {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// SmartOS implements the SmartOS/Joyent metadata source (spec §4.2),
// sourced through the mdata-get binary rather than an HTTP endpoint.
type SmartOS struct {
	PriorityHint int
	Timeout      time.Duration
}

var _ api.MetadataSource = (*SmartOS)(nil)

func (s *SmartOS) Kind() api.MetadataSourceKind { return api.SourceSmartOS }
func (s *SmartOS) Priority() int                { return s.PriorityHint }

func (s *SmartOS) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultProbeTimeout
}

func (s *SmartOS) IsAvailable(ctx context.Context) bool {
	_, ok := findMdataGet()
	return ok
}

func (s *SmartOS) Load(ctx context.Context) (api.NormalizedConfig, error) {
	bin, ok := findMdataGet()
	if !ok {
		return api.NormalizedConfig{}, os.ErrNotExist
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	metaData := map[string]interface{}{}
	for _, key := range []string{"hostname", "sdc:uuid", "root_authorized_keys"} {
		if value, err := runMdataGet(ctx, bin, key); err == nil {
			metaData[key] = value
		}
	}

	raw := map[string]interface{}{"meta_data": metaData}
	if hostname, ok := metaData["hostname"].(string); ok {
		raw["hostname"] = hostname
	}
	if keys, ok := metaData["root_authorized_keys"].(string); ok && keys != "" {
		raw["ssh_authorized_keys"] = []interface{}{keys}
	}
	if userScript, err := runMdataGet(ctx, bin, "user-script"); err == nil {
		raw["user_data"] = userScript
	}

	return normalize.Normalize(raw)
}

func runMdataGet(ctx context.Context, bin, key string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, key)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}
