package operation

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sflowg/dingtalk/runtime"
)

// Bundle groups the operations of one resource.
type Bundle struct {
	Value             string
	Name              string
	Operations        []Def
	OperationProperty runtime.NodeProperty
	// Properties are the operations' properties, each also gated on this resource.
	Properties []runtime.NodeProperty
}

// NewBundle sorts ops by display name and fails on duplicate operation values.
func NewBundle(value, name string, ops ...Def) (Bundle, error) {
	seen := map[string]int{}
	for _, op := range ops {
		seen[op.Value]++
	}
	var dups []string
	for v, n := range seen {
		if n > 1 {
			dups = append(dups, fmt.Sprintf("%s x%d", v, n))
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return Bundle{}, fmt.Errorf("duplicate operations in %s: %s", value, strings.Join(dups, ", "))
	}

	sorted := append([]Def(nil), ops...)
	col := collate.New(language.SimplifiedChinese)
	sort.SliceStable(sorted, func(i, j int) bool {
		return col.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	options := make([]runtime.PropertyOption, 0, len(sorted))
	var props []runtime.NodeProperty
	for _, op := range sorted {
		action := op.Action
		if action == "" {
			action = op.Name
		}
		options = append(options, runtime.PropertyOption{
			Name:        op.Name,
			Value:       op.Value,
			Action:      action,
			Description: op.Description,
		})
		props = append(props, op.Properties...)
	}

	return Bundle{
		Value:      value,
		Name:       name,
		Operations: sorted,
		OperationProperty: runtime.NodeProperty{
			DisplayName:      "Operation",
			Name:             "operation",
			Type:             runtime.PropertyOptions,
			NoDataExpression: true,
			DisplayOptions:   runtime.ShowOnly("resource", value),
			Options:          options,
			Default:          "",
		},
		Properties: attachResourceShow(props, value),
	}, nil
}

// MustBundle is NewBundle for package-level bundle definitions.
func MustBundle(value, name string, ops ...Def) Bundle {
	b, err := NewBundle(value, name, ops...)
	if err != nil {
		panic(err)
	}
	return b
}

// attachResourceShow adds value to show.resource of every property, keeping
// existing conditions.
func attachResourceShow(props []runtime.NodeProperty, value string) []runtime.NodeProperty {
	out := make([]runtime.NodeProperty, len(props))
	for i, p := range props {
		var resources []any
		if p.DisplayOptions != nil {
			resources = append(resources, p.DisplayOptions.Show["resource"]...)
		}
		found := false
		for _, r := range resources {
			if r == value {
				found = true
				break
			}
		}
		if !found {
			resources = append(resources, value)
		}
		p.DisplayOptions = p.DisplayOptions.With("resource", resources...)
		out[i] = p
	}
	return out
}

// Registry is the runtime lookup over all resource bundles.
type Registry struct {
	bundles []Bundle
	ops     map[string]Def
}

// NewRegistry orders bundles by resource value and rejects duplicate resources
// or operation values.
func NewRegistry(bundles ...Bundle) (*Registry, error) {
	seen := map[string]int{}
	for _, b := range bundles {
		seen[b.Value]++
	}
	var dups []string
	for v, n := range seen {
		if n > 1 {
			dups = append(dups, v)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return nil, fmt.Errorf("duplicate resource detected: %s", strings.Join(dups, ", "))
	}

	sorted := append([]Bundle(nil), bundles...)
	col := collate.New(language.SimplifiedChinese)
	sort.SliceStable(sorted, func(i, j int) bool {
		return col.CompareString(sorted[i].Value, sorted[j].Value) < 0
	})

	ops := map[string]Def{}
	for _, b := range sorted {
		for _, op := range b.Operations {
			if _, exists := ops[op.Value]; exists {
				return nil, fmt.Errorf("operation %q defined by more than one resource", op.Value)
			}
			ops[op.Value] = op
		}
	}

	return &Registry{bundles: sorted, ops: ops}, nil
}

func (r *Registry) Lookup(value string) (Def, bool) {
	op, ok := r.ops[value]
	return op, ok
}

func (r *Registry) Bundles() []Bundle {
	return r.bundles
}

// Properties returns the node schema: the resource selector, each resource's
// operation selector, then every operation parameter.
func (r *Registry) Properties() []runtime.NodeProperty {
	resource := runtime.NodeProperty{
		DisplayName:      "Resource",
		Name:             "resource",
		Type:             runtime.PropertyOptions,
		NoDataExpression: true,
		Default:          "",
	}
	for _, b := range r.bundles {
		resource.Options = append(resource.Options, runtime.PropertyOption{Name: b.Name, Value: b.Value})
	}

	props := []runtime.NodeProperty{resource}
	for _, b := range r.bundles {
		props = append(props, b.OperationProperty)
	}
	for _, b := range r.bundles {
		props = append(props, b.Properties...)
	}
	return props
}
