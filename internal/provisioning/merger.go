package provisioning

import "sysconfigd/internal/api"

// Merge implements the Config Merger (spec §4.4): a two-pass reduction of
// prioritized normalized configs into one. Lower Priority numbers are more
// authoritative. Both passes walk descending priority (least authoritative
// first, most authoritative last), so the last write for any
// override-semantics field always comes from the most authoritative entry
// that set it, while union fields still accumulate contributions from
// every level.
func Merge(configs []api.PrioritizedConfig) api.NormalizedConfig {
	sorted := make([]api.PrioritizedConfig, len(configs))
	copy(sorted, configs)
	sortDescendingPriority(sorted)

	var result api.NormalizedConfig
	result.Interfaces = make(map[string]api.InterfaceRecord)
	result.Metadata = make(map[string]interface{})

	for _, entry := range sorted {
		mergeBaseline(&result, entry.Config)
	}

	// The override pass visits entries that share a priority in reverse
	// insertion order, so the first-inserted entry of a tie writes last and
	// wins.
	overrideOrder := make([]api.PrioritizedConfig, len(configs))
	for i, entry := range configs {
		overrideOrder[len(configs)-1-i] = entry
	}
	sortDescendingPriority(overrideOrder)

	for _, entry := range overrideOrder {
		applyOverrides(&result, entry.Config)
	}

	return result
}

func mergeBaseline(result *api.NormalizedConfig, cfg api.NormalizedConfig) {
	if result.Hostname == "" {
		result.Hostname = cfg.Hostname
	}
	result.Nameservers = appendUnique(result.Nameservers, cfg.Nameservers...)
	result.SearchDomains = appendUnique(result.SearchDomains, cfg.SearchDomains...)

	for name, iface := range cfg.Interfaces {
		result.Interfaces[name] = iface
	}

	result.SSHAuthorizedKeys = appendUnique(result.SSHAuthorizedKeys, cfg.SSHAuthorizedKeys...)
	result.Users = appendUniqueUsers(result.Users, cfg.Users)

	if result.UserData == "" {
		result.UserData = cfg.UserData
	}
	if result.UserDataBase64 == "" {
		result.UserDataBase64 = cfg.UserDataBase64
	}
	for key, value := range cfg.Metadata {
		result.Metadata[key] = value
	}
	result.Routes = appendUniqueRoutes(result.Routes, cfg.Routes)
	result.NTPServers = appendUnique(result.NTPServers, cfg.NTPServers...)
	if result.Timezone == "" {
		result.Timezone = cfg.Timezone
	}
}

func applyOverrides(result *api.NormalizedConfig, cfg api.NormalizedConfig) {
	if cfg.Hostname != "" {
		result.Hostname = cfg.Hostname
	}
	if cfg.UserData != "" {
		result.UserData = cfg.UserData
	}
	if cfg.UserDataBase64 != "" {
		result.UserDataBase64 = cfg.UserDataBase64
	}
	if cfg.Timezone != "" {
		result.Timezone = cfg.Timezone
	}
	for name, iface := range cfg.Interfaces {
		result.Interfaces[name] = iface
	}
	for key, value := range cfg.Metadata {
		result.Metadata[key] = value
	}
}

func appendUnique(existing []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, e := range existing {
			if e == v {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, v)
		}
	}
	return existing
}

func appendUniqueUsers(existing []string, values []string) []string {
	return appendUnique(existing, values...)
}

func appendUniqueRoutes(existing []api.StaticRoute, values []api.StaticRoute) []api.StaticRoute {
	for _, v := range values {
		found := false
		for _, e := range existing {
			if e.Destination == v.Destination && e.Gateway == v.Gateway {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, v)
		}
	}
	return existing
}

func sortDescendingPriority(configs []api.PrioritizedConfig) {
	insertionSort(configs, func(a, b api.PrioritizedConfig) bool { return a.Priority > b.Priority })
}

// insertionSort is a stable sort over the small (single-digit) slices this
// package handles, preserving each priority's original relative visiting
// order (spec §4.4: "preserving the order in which sources are visited").
func insertionSort(configs []api.PrioritizedConfig, less func(a, b api.PrioritizedConfig) bool) {
	for i := 1; i < len(configs); i++ {
		for j := i; j > 0 && less(configs[j], configs[j-1]); j-- {
			configs[j], configs[j-1] = configs[j-1], configs[j]
		}
	}
}
