package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/adrianmcphee/globalcache"
)

// absentMarker is printed for attributes the record does not hold
const absentMarker = "<absent>"

// writeAttributes prints a record in the type's declared attribute order,
// padded so values line up.
func writeAttributes(w io.Writer, key string, t *globalcache.EntityType, attrs map[string]globalcache.AttributeValue) {
	fmt.Fprint(w, FormatAttributes(key, t, attrs))
}

// FormatAttributes renders a record as text. Output is deterministic.
func FormatAttributes(key string, t *globalcache.EntityType, attrs map[string]globalcache.AttributeValue) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(key)
	if source := sourceKey(key, attrs); source != "" {
		sb.WriteString(" -> ")
		sb.WriteString(source)
	}
	sb.WriteString("\n")

	names := t.Attributes()
	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range names {
		value := absentMarker
		if av, ok := attrs[name]; ok && av.Found {
			value = av.Value
		}
		sb.WriteString(fmt.Sprintf("%-*s  %s\n", width, name, value))
	}
	return sb.String()
}

// sourceKey returns the record the values were read from when it differs
// from key, as it does after a dereference.
func sourceKey(key string, attrs map[string]globalcache.AttributeValue) string {
	for _, av := range attrs {
		if av.Found && av.Key != "" && av.Key != key {
			return av.Key
		}
	}
	return ""
}

// writeMembers prints set members one per line, sorted
func writeMembers(w io.Writer, members []string) {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)
	for _, m := range sorted {
		fmt.Fprintln(w, m)
	}
}

func writeValue(w io.Writer, value string, found bool) {
	if !found {
		fmt.Fprintln(w, absentMarker)
		return
	}
	fmt.Fprintln(w, value)
}

// writeTypes lists entity types with their attributes and label keys
func writeTypes(w io.Writer, registry *globalcache.Registry, labels map[string]*globalcache.LabelType) {
	names := registry.Names()
	sort.Strings(names)
	for _, name := range names {
		t, err := registry.Lookup(name)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("%s (ref %s)", name, t.Reference())
		if _, ok := labels[name]; ok {
			line += " [label]"
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "  %s\n", strings.Join(t.Attributes(), ", "))
	}
}
