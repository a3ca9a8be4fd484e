package sources

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

const (
	ec2TokenURL    = "http://169.254.169.254/latest/api/token"
	ec2MetaDataURL = "http://169.254.169.254/latest/meta-data/"
	ec2TokenTTL    = "21600"
)

// EC2 implements the AWS EC2 metadata source via IMDSv2 (spec §4.2/§6): a
// token is acquired with a PUT before any GET is attempted.
type EC2 struct {
	PriorityHint int
	Timeout      time.Duration
}

var _ api.MetadataSource = (*EC2)(nil)

func (e *EC2) Kind() api.MetadataSourceKind { return api.SourceEC2 }
func (e *EC2) Priority() int                { return e.PriorityHint }

func (e *EC2) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultProbeTimeout
}

func (e *EC2) acquireToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ec2TokenURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-aws-ec2-metadata-token-ttl-seconds", ec2TokenTTL)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errUnexpectedStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// IsAvailable succeeds only if a token can be acquired; without IMDSv2
// access the source reports unavailable (spec §4.2: "if this fails, the
// source is unavailable").
func (e *EC2) IsAvailable(ctx context.Context) bool {
	_, err := e.acquireToken(ctx)
	return err == nil
}

func (e *EC2) Load(ctx context.Context) (api.NormalizedConfig, error) {
	token, err := e.acquireToken(ctx)
	if err != nil {
		return api.NormalizedConfig{}, err
	}
	headers := map[string]string{"X-aws-ec2-metadata-token": token}

	raw := map[string]interface{}{}
	metaData := map[string]interface{}{}

	for _, path := range []string{"instance-id", "instance-type", "placement/availability-zone", "local-hostname", "public-hostname"} {
		value, err := fetchMetadata(ctx, http.MethodGet, ec2MetaDataURL+path, headers, e.timeout())
		if err == nil {
			metaData[path] = value
		}
	}
	raw["meta_data"] = metaData

	if userData, err := fetchMetadata(ctx, http.MethodGet, "http://169.254.169.254/latest/user-data", headers, e.timeout()); err == nil {
		raw["user_data"] = userData
	}

	return normalize.Normalize(raw)
}

type statusError int

func (s statusError) Error() string {
	return "unexpected status " + strconv.Itoa(int(s))
}

func errUnexpectedStatus(code int) error { return statusError(code) }
