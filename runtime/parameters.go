package runtime

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
)

// HasParameter reports whether name (a dotted path) is set on the execution.
func (e *Execution) HasParameter(name string) bool {
	_, ok := e.rawParameter(name)
	return ok
}

// GetParameter returns the parameter at the dotted path name for the item at
// itemIndex, with expressions evaluated against that item. A missing
// parameter falls back to the default of the visible node property.
func (e *Execution) GetParameter(name string, itemIndex int) (any, error) {
	value, ok := e.rawParameter(name)
	if !ok {
		return e.defaultFor(name), nil
	}
	resolved, err := e.evaluator.resolveValue(value, e.expressionEnv(itemIndex))
	if err != nil {
		return nil, NewOperationError(e.NodeName(),
			fmt.Sprintf("failed to resolve parameter %q: %v", name, err)).WithItemIndex(itemIndex)
	}
	return resolved, nil
}

// StringParameter returns the parameter rendered as a string.
func (e *Execution) StringParameter(name string, itemIndex int) (string, error) {
	v, err := e.GetParameter(name, itemIndex)
	if err != nil {
		return "", err
	}
	return ToString(v), nil
}

// LocatorValue resolves a resource locator parameter to its plain value.
// Plain strings are returned as is; {mode, value} objects are checked against
// the mode's validation regex, then its extraction regex, so a pasted URL
// yields the embedded ID.
func (e *Execution) LocatorValue(name string, itemIndex int) (string, error) {
	v, err := e.GetParameter(name, itemIndex)
	if err != nil {
		return "", err
	}

	locator, ok := v.(map[string]any)
	if !ok {
		return strings.TrimSpace(ToString(v)), nil
	}

	mode := ToString(locator["mode"])
	value := strings.TrimSpace(ToString(locator["value"]))
	if value == "" {
		return "", nil
	}

	prop, _ := e.visibleProperty(name)
	for _, m := range prop.Modes {
		if m.Name != mode {
			continue
		}
		if m.ValidateRegex != "" && !regexp.MustCompile(m.ValidateRegex).MatchString(value) {
			msg := m.ValidationMessage
			if msg == "" {
				msg = fmt.Sprintf("invalid value for %q", name)
			}
			return "", NewOperationError(e.NodeName(), msg).WithItemIndex(itemIndex)
		}
		if m.ExtractRegex != "" {
			match := regexp.MustCompile(m.ExtractRegex).FindStringSubmatch(value)
			if len(match) < 2 {
				return "", NewOperationError(e.NodeName(),
					fmt.Sprintf("could not extract a value for %q from %q", name, value)).WithItemIndex(itemIndex)
			}
			value = match[1]
		}
		break
	}
	return value, nil
}

// DecodeParameters fills target, a pointer to a struct, from the parameters
// named by its json tags. Struct default tags apply first, then the parameters,
// then validate tags are checked.
func (e *Execution) DecodeParameters(itemIndex int, target any) error {
	if err := ApplyDefaults(target); err != nil {
		return err
	}

	values := make(map[string]any)
	for _, name := range jsonFieldNames(target) {
		var (
			v   any
			err error
		)
		if prop, ok := e.visibleProperty(name); ok && prop.Type == PropertyResourceLocator {
			v, err = e.LocatorValue(name, itemIndex)
		} else if e.HasParameter(name) {
			v, err = e.GetParameter(name, itemIndex)
		} else {
			v = e.defaultFor(name)
		}
		if err != nil {
			return err
		}
		if v != nil {
			values[name] = v
		}
	}

	if err := mapToStruct(values, target); err != nil {
		return NewOperationError(e.NodeName(), fmt.Sprintf("invalid parameters: %v", err)).WithItemIndex(itemIndex)
	}
	if err := ValidateStruct(reflect.Indirect(reflect.ValueOf(target)).Interface()); err != nil {
		return NewOperationError(e.NodeName(), err.Error()).WithItemIndex(itemIndex)
	}
	return nil
}

func (e *Execution) rawParameter(name string) (any, bool) {
	container := gabs.Wrap(e.Parameters)
	if !container.ExistsP(name) {
		return nil, false
	}
	return container.Path(name).Data(), true
}

func (e *Execution) expressionEnv(itemIndex int) map[string]any {
	env := map[string]any{
		"itemIndex": itemIndex,
		"now":       time.Now(),
		"execution": map[string]any{"id": e.ID},
		"json":      map[string]any{},
	}
	if itemIndex >= 0 && itemIndex < len(e.Items) && e.Items[itemIndex].JSON != nil {
		env["json"] = e.Items[itemIndex].JSON
	}
	return env
}

// visibleProperty finds the property called name whose display options match
// the current parameters. Several properties may share a name across operations.
func (e *Execution) visibleProperty(name string) (NodeProperty, bool) {
	return e.visiblePropertyAt(name, 0)
}

// maxDisplayDepth bounds the chain of display options followed through
// defaulted parameters (field -> sendBody -> operation -> resource).
const maxDisplayDepth = 8

func (e *Execution) visiblePropertyAt(name string, depth int) (NodeProperty, bool) {
	if e.Node == nil {
		return NodeProperty{}, false
	}
	var fallback *NodeProperty
	for i, p := range e.Node.Properties {
		if p.Name != name {
			continue
		}
		if fallback == nil {
			fallback = &e.Node.Properties[i]
		}
		if depth < maxDisplayDepth && e.displayed(p.DisplayOptions, depth+1) {
			return p, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return NodeProperty{}, false
}

func (e *Execution) displayed(opts *DisplayOptions, depth int) bool {
	if opts == nil {
		return true
	}
	for key, allowed := range opts.Show {
		current, ok := e.rawParameter(key)
		if !ok {
			if p, found := e.visiblePropertyAt(key, depth); found {
				current = p.Default
			}
		}
		matched := false
		for _, a := range allowed {
			if ToString(a) == ToString(current) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (e *Execution) defaultFor(name string) any {
	if strings.Contains(name, ".") {
		head, rest, _ := strings.Cut(name, ".")
		p, ok := e.visibleProperty(head)
		if !ok || p.Default == nil {
			return nil
		}
		return copyValue(gabs.Wrap(p.Default).Path(rest).Data())
	}
	p, ok := e.visibleProperty(name)
	if !ok {
		return nil
	}
	return copyValue(p.Default)
}

// copyValue deep-copies maps and slices so defaults shared through the node
// description are never mutated by callers.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

func jsonFieldNames(target any) []string {
	t := reflect.TypeOf(target)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	return names
}
