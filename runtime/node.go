package runtime

// PropertyType is the editor type of a node property.
type PropertyType string

const (
	PropertyString          PropertyType = "string"
	PropertyNumber          PropertyType = "number"
	PropertyBoolean         PropertyType = "boolean"
	PropertyOptions         PropertyType = "options"
	PropertyMultiOptions    PropertyType = "multiOptions"
	PropertyJSON            PropertyType = "json"
	PropertyCollection      PropertyType = "collection"
	PropertyFixedCollection PropertyType = "fixedCollection"
	PropertyResourceLocator PropertyType = "resourceLocator"
	PropertyResourceMapper  PropertyType = "resourceMapper"
	PropertyDateTime        PropertyType = "dateTime"
	PropertyNotice          PropertyType = "notice"
)

// DisplayOptions controls when a property is shown, keyed by other parameter names.
type DisplayOptions struct {
	Show map[string][]any `json:"show,omitempty" yaml:"show,omitempty"`
}

// ShowOnly builds display options showing a property when key has one of values.
func ShowOnly(key string, values ...any) *DisplayOptions {
	return &DisplayOptions{Show: map[string][]any{key: values}}
}

// With returns a copy of d that additionally requires key to match values.
func (d *DisplayOptions) With(key string, values ...any) *DisplayOptions {
	out := &DisplayOptions{Show: map[string][]any{}}
	if d != nil {
		for k, v := range d.Show {
			out.Show[k] = append([]any(nil), v...)
		}
	}
	out.Show[key] = values
	return out
}

// PropertyOption is one choice of an options property, or one group of a fixedCollection.
type PropertyOption struct {
	Name        string         `json:"name"`
	Value       any            `json:"value,omitempty"`
	Action      string         `json:"action,omitempty"`
	Description string         `json:"description,omitempty"`
	Values      []NodeProperty `json:"values,omitempty"`
}

// LocatorMode is one input mode of a resource locator property.
type LocatorMode struct {
	DisplayName       string `json:"displayName"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	Placeholder       string `json:"placeholder,omitempty"`
	Hint              string `json:"hint,omitempty"`
	SearchListMethod  string `json:"searchListMethod,omitempty"`
	ExtractRegex      string `json:"extractValue,omitempty"`
	ValidateRegex     string `json:"validateRegex,omitempty"`
	ValidationMessage string `json:"validationMessage,omitempty"`
}

// NodeProperty describes one parameter of a node.
type NodeProperty struct {
	DisplayName      string           `json:"displayName"`
	Name             string           `json:"name"`
	Type             PropertyType     `json:"type"`
	Default          any              `json:"default"`
	Required         bool             `json:"required,omitempty"`
	NoDataExpression bool             `json:"noDataExpression,omitempty"`
	Description      string           `json:"description,omitempty"`
	Placeholder      string           `json:"placeholder,omitempty"`
	Hint             string           `json:"hint,omitempty"`
	Options          []PropertyOption `json:"options,omitempty"`
	Values           []NodeProperty   `json:"values,omitempty"`
	Modes            []LocatorMode    `json:"modes,omitempty"`
	TypeOptions      map[string]any   `json:"typeOptions,omitempty"`
	DisplayOptions   *DisplayOptions  `json:"displayOptions,omitempty"`
}

// CredentialRef declares a credential type a node may use.
type CredentialRef struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// NodeDescription is the static schema of a node.
type NodeDescription struct {
	DisplayName string          `json:"displayName"`
	Name        string          `json:"name"`
	Icon        string          `json:"icon,omitempty"`
	Group       []string        `json:"group"`
	Version     int             `json:"version"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Description string          `json:"description"`
	Inputs      []string        `json:"inputs"`
	Outputs     []string        `json:"outputs"`
	Credentials []CredentialRef `json:"credentials,omitempty"`
	Properties  []NodeProperty  `json:"properties"`
}

// Property returns the first property called name.
func (d *NodeDescription) Property(name string) (NodeProperty, bool) {
	if d == nil {
		return NodeProperty{}, false
	}
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return NodeProperty{}, false
}
