package normalize

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"sysconfigd/internal/api"
)

// Normalize implements the Schema Normalizer (spec §4.3): reduces a raw
// payload keyed by source section to the fixed NormalizedConfig shape.
// Recognized top-level keys: "hostname", "meta_data", "network_config",
// "user_data", "user_data_base64", "nameservers", "search_domains",
// "ssh_authorized_keys", "ntp_servers", "timezone". Unrecognized keys are copied verbatim into
// Metadata so no input is silently dropped.
func Normalize(raw map[string]interface{}) (api.NormalizedConfig, error) {
	cfg := api.NormalizedConfig{
		Interfaces: make(map[string]api.InterfaceRecord),
		Metadata:   make(map[string]interface{}),
	}

	cfg.Hostname = resolveHostname(raw)

	if ns, ok := raw["nameservers"].([]interface{}); ok {
		cfg.Nameservers = toStringSlice(ns)
	}
	if sd, ok := raw["search_domains"].([]interface{}); ok {
		cfg.SearchDomains = toStringSlice(sd)
	}
	if keys, ok := raw["ssh_authorized_keys"].([]interface{}); ok {
		cfg.SSHAuthorizedKeys = toStringSlice(keys)
	}
	if ntp, ok := raw["ntp_servers"].([]interface{}); ok {
		cfg.NTPServers = toStringSlice(ntp)
	}
	if tz, ok := raw["timezone"].(string); ok {
		cfg.Timezone = tz
	}

	if netConfig, ok := raw["network_config"].(map[string]interface{}); ok {
		if err := expandNetworkConfigV1(netConfig, &cfg); err != nil {
			return api.NormalizedConfig{}, fmt.Errorf("normalizing network-config: %w", err)
		}
	}

	if err := applyUserData(raw, &cfg); err != nil {
		return api.NormalizedConfig{}, err
	}

	for key, value := range raw {
		switch key {
		case "hostname", "meta_data", "network_config", "user_data", "user_data_base64",
			"nameservers", "search_domains", "ssh_authorized_keys", "ntp_servers", "timezone":
			continue
		default:
			cfg.Metadata[key] = value
		}
	}

	return cfg, nil
}

// resolveHostname applies spec §4.3's precedence order: explicit top-level
// "hostname", then cloud-specific hostname fields, then meta_data.hostname.
func resolveHostname(raw map[string]interface{}) string {
	if h, ok := raw["hostname"].(string); ok && h != "" {
		return h
	}
	if meta, ok := raw["meta_data"].(map[string]interface{}); ok {
		for _, key := range []string{"local-hostname", "public-hostname", "hostname"} {
			if h, ok := meta[key].(string); ok && h != "" {
				return h
			}
		}
	}
	return ""
}

func applyUserData(raw map[string]interface{}, cfg *api.NormalizedConfig) error {
	if b64, ok := raw["user_data_base64"].(string); ok && b64 != "" {
		cfg.UserDataBase64 = b64
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err == nil && utf8.Valid(decoded) {
			cfg.UserData = string(decoded)
		}
		return nil
	}
	if ud, ok := raw["user_data"].(string); ok && ud != "" {
		cfg.UserData = ud
	}
	return nil
}

// expandNetworkConfigV1 expands cloud-init network-config v1 (spec §4.3):
// "physical" items become interfaces, "vlan" items become interfaces with
// VLANID/Parent set, "bond" items become interfaces exactly as "physical"
// items do (their bond-specific parameters are not carried into the
// result), "nameserver" and "route" items populate top-level fields.
func expandNetworkConfigV1(netConfig map[string]interface{}, cfg *api.NormalizedConfig) error {
	rawConfig, ok := netConfig["config"].([]interface{})
	if !ok {
		return nil
	}

	for _, item := range rawConfig {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		kind, _ := entry["type"].(string)

		switch kind {
		case "physical", "bond":
			name, _ := entry["name"].(string)
			if name == "" {
				continue
			}
			iface := api.InterfaceRecord{Name: name, Enabled: true}
			if mac, ok := entry["mac_address"].(string); ok {
				iface.MAC = mac
			}
			if mtu, ok := entry["mtu"].(float64); ok {
				iface.MTU = int(mtu)
			}
			if subnets, ok := entry["subnets"].([]interface{}); ok {
				iface.Addresses = expandSubnets(subnets)
			}
			cfg.Interfaces[name] = iface

		case "vlan":
			name, _ := entry["name"].(string)
			if name == "" {
				continue
			}
			iface := api.InterfaceRecord{Name: name, Enabled: true}
			if vlanID, ok := entry["vlan_id"].(float64); ok {
				id := int(vlanID)
				iface.VLANID = &id
			}
			if parent, ok := entry["vlan_link"].(string); ok {
				iface.Parent = parent
			}
			if subnets, ok := entry["subnets"].([]interface{}); ok {
				iface.Addresses = expandSubnets(subnets)
			}
			cfg.Interfaces[name] = iface

		case "nameserver":
			if addrs, ok := entry["address"].([]interface{}); ok {
				cfg.Nameservers = appendUnique(cfg.Nameservers, toStringSlice(addrs)...)
			}
			if domains, ok := entry["search"].([]interface{}); ok {
				cfg.SearchDomains = appendUnique(cfg.SearchDomains, toStringSlice(domains)...)
			}

		case "route":
			dest, _ := entry["destination"].(string)
			gw, _ := entry["gateway"].(string)
			if dest == "" {
				continue
			}
			route := api.StaticRoute{Destination: dest, Gateway: gw}
			if metric, ok := entry["metric"].(float64); ok {
				route.Metric = int(metric)
			}
			cfg.Routes = appendUniqueRoutes(cfg.Routes, []api.StaticRoute{route})
		}
	}

	return nil
}

func expandSubnets(subnets []interface{}) []api.AddressConfig {
	var addresses []api.AddressConfig
	for _, s := range subnets {
		subnet, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		kind, _ := subnet["type"].(string)
		addr := api.AddressConfig{Kind: kind}
		if address, ok := subnet["address"].(string); ok {
			addr.Address = address
		}
		if gw, ok := subnet["gateway"].(string); ok {
			addr.Gateway = gw
		}
		addresses = append(addresses, addr)
	}
	return addresses
}

func toStringSlice(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
