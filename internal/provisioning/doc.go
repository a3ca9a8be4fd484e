// Package provisioning implements the provisioning subsystem (spec §4.2-§4.4):
// metadata sources that probe availability and fetch raw configuration, a
// normalizer that reduces their payloads to the fixed NormalizedConfig
// shape, a priority-based merger, and a collector that fans source probing
// and loading out in parallel and returns the merged result, which
// `sysconfigd serve` installs as the State Store's desired tree at startup.
package provisioning
