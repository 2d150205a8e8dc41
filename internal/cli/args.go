package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/propmap/internal/store"
)

// parseKind maps "node" / "relation" (or their plurals) to a record table.
func parseKind(s string) (store.Table, error) {
	switch strings.ToLower(s) {
	case "node", "nodes":
		return store.Nodes, nil
	case "relation", "relations":
		return store.Relations, nil
	default:
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("unknown element kind %q: must be node or relation", s))
	}
}

// parseID parses a non-negative element id.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

// parseIndex converts a 1-based proposition index, as printed by the
// relations command, to a 0-based position.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid proposition index %q: must be 1 or more", s))
	}
	return n - 1, nil
}

// parseFields turns key=value arguments into a map.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid attribute %q: expected key=value", arg))
		}
		fields[key] = value
	}
	return fields, nil
}
