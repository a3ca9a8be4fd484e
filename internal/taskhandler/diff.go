package taskhandler

import (
	"reflect"

	"sysconfigd/internal/api"
)

// diffTrees computes the minimal set of changes that would turn current
// into desired, recursing into nested maps and comparing leaves by
// reflect.DeepEqual. prefix is the dotted path accumulated so far.
func diffTrees(prefix string, current, desired api.Tree) []api.StateChange {
	var changes []api.StateChange

	for key, desiredVal := range desired {
		path := joinPath(prefix, key)
		currentVal, existed := current[key]

		switch {
		case !existed:
			changes = append(changes, api.StateChange{Kind: api.ChangeCreate, Path: path, NewValue: desiredVal})

		case isTree(desiredVal) && isTree(currentVal):
			changes = append(changes, diffTrees(path, currentVal.(api.Tree), desiredVal.(api.Tree))...)

		case !reflect.DeepEqual(currentVal, desiredVal):
			changes = append(changes, api.StateChange{Kind: api.ChangeUpdate, Path: path, OldValue: currentVal, NewValue: desiredVal})
		}
	}

	for key, currentVal := range current {
		if _, stillDesired := desired[key]; !stillDesired {
			changes = append(changes, api.StateChange{Kind: api.ChangeDelete, Path: joinPath(prefix, key), OldValue: currentVal})
		}
	}

	return changes
}

func isTree(v interface{}) bool {
	_, ok := v.(api.Tree)
	return ok
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
