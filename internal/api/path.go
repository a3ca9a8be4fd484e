package api

import "strings"

// SplitPath breaks a dotted path ("network.settings.hostname") into its
// ordered segments. An empty path yields a nil (length-zero) slice,
// representing the tree root.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// JoinPath reassembles segments produced by SplitPath into a dotted path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// PrefixOverlaps reports whether path a and path b overlap under the
// registry's non-overlap rule: true iff one is equal to the other or a
// proper segment-wise prefix of the other. "network" and "network.settings"
// overlap; "network" and "networking" do not.
func PrefixOverlaps(a, b string) bool {
	segA, segB := SplitPath(a), SplitPath(b)
	shorter, longer := segA, segB
	if len(longer) < len(shorter) {
		shorter, longer = longer, shorter
	}
	for i, seg := range shorter {
		if longer[i] != seg {
			return false
		}
	}
	return true
}

// GetPath walks tree along path's segments and returns the value found
// there, or (nil, false) if any segment is absent or the walk hits a
// non-object node before exhausting the path.
func GetPath(tree Tree, path string) (interface{}, bool) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return tree, true
	}
	var cur interface{} = tree
	for _, seg := range segments {
		m, ok := cur.(Tree)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes value at path inside tree, creating intermediate objects
// as needed. SetPath mutates tree in place.
func SetPath(tree Tree, path string, value interface{}) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return
	}
	cur := tree
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(Tree)
		if !ok {
			next = Tree{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = value
}

// LongestOwnedPrefix returns, among candidatePaths (a plugin's managed
// paths), the one that is a prefix of path and has the most segments, and
// whether any candidate matched. Used by the registry's owner_for_path.
func LongestOwnedPrefix(path string, candidatePaths []string) (string, bool) {
	pathSegs := SplitPath(path)
	best := ""
	bestLen := -1
	found := false
	for _, candidate := range candidatePaths {
		candSegs := SplitPath(candidate)
		if len(candSegs) > len(pathSegs) {
			continue
		}
		match := true
		for i, seg := range candSegs {
			if pathSegs[i] != seg {
				match = false
				break
			}
		}
		if match && len(candSegs) > bestLen {
			best = candidate
			bestLen = len(candSegs)
			found = true
		}
	}
	return best, found
}
