// Package sources implements the eight Metadata Source variants (spec
// §4.2): Local, CloudInit, EC2, GCP, Azure, OpenStack, DigitalOcean, and
// SmartOS. Each satisfies api.MetadataSource: a bounded-latency
// availability probe and a full-payload Load that builds a raw map and
// returns it already reduced by normalize.Normalize to a NormalizedConfig.
package sources
