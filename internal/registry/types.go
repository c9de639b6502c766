package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Descriptor describes one insertable component.
type Descriptor struct {
	Path           string          `yaml:"path" json:"path"`
	FileName       string          `yaml:"fileName,omitempty" json:"fileName,omitempty"`
	Category       string          `yaml:"category" json:"category"`
	Name           string          `yaml:"name" json:"name"`
	DisplayName    string          `yaml:"displayName" json:"displayName"`
	Description    string          `yaml:"description,omitempty" json:"description,omitempty"`
	Icon           string          `yaml:"icon,omitempty" json:"icon,omitempty"`
	Inputs         Inputs          `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	StructureValue *StructureValue `yaml:"structureValue,omitempty" json:"structureValue,omitempty"`
	SupportsSlots  bool            `yaml:"supportsSlots,omitempty" json:"supportsSlots,omitempty"`
	FallbackFor    string          `yaml:"fallbackFor,omitempty" json:"fallbackFor,omitempty"`
	Slots          []Slot          `yaml:"slots,omitempty" json:"slots,omitempty"`
	IsVirtual      bool            `yaml:"isVirtual,omitempty" json:"isVirtual,omitempty"`
}

// Slot returns the declared slot with the given property name.
func (d *Descriptor) Slot(propName string) (*Slot, bool) {
	for i := range d.Slots {
		if d.Slots[i].PropName == propName {
			return &d.Slots[i], true
		}
	}

	return nil, false
}

// HasSlots reports whether the descriptor declares at least one slot.
func (d *Descriptor) HasSlots() bool {
	return len(d.Slots) > 0
}

// Slot is a property that holds child component nodes.
type Slot struct {
	PropName          string         `yaml:"propName" json:"propName"`
	Label             string         `yaml:"label,omitempty" json:"label,omitempty"`
	AllowedComponents []string       `yaml:"allowedComponents" json:"allowedComponents"`
	StructureName     string         `yaml:"structureName,omitempty" json:"structureName,omitempty"`
	AllowAsProp       bool           `yaml:"allowAsProp,omitempty" json:"allowAsProp,omitempty"`
	PropType          string         `yaml:"propType,omitempty" json:"propType,omitempty"`
	PropLabel         string         `yaml:"propLabel,omitempty" json:"propLabel,omitempty"`
	PropConfig        map[string]any `yaml:"propConfig,omitempty" json:"propConfig,omitempty"`
}

// InputConfig is the editable-field configuration declared for a prop.
type InputConfig struct {
	Type    string        `yaml:"type,omitempty" json:"type,omitempty"`
	Label   string        `yaml:"label,omitempty" json:"label,omitempty"`
	Comment string        `yaml:"comment,omitempty" json:"comment,omitempty"`
	Default any           `yaml:"default,omitempty" json:"default,omitempty"`
	Options *InputOptions `yaml:"options,omitempty" json:"options,omitempty"`

	// raw keeps the document node so exports reproduce every key, including
	// ones this struct does not model.
	raw *yaml.Node
}

// InputOptions holds the options block of an input configuration.
type InputOptions struct {
	Values      []any          `yaml:"values,omitempty" json:"values,omitempty"`
	Structures  any            `yaml:"structures,omitempty" json:"structures,omitempty"`
	AllowAsProp bool           `yaml:"allow_as_prop,omitempty" json:"allow_as_prop,omitempty"`
	PropType    string         `yaml:"prop_type,omitempty" json:"prop_type,omitempty"`
	PropLabel   string         `yaml:"prop_label,omitempty" json:"prop_label,omitempty"`
	PropConfig  map[string]any `yaml:"prop_config,omitempty" json:"prop_config,omitempty"`
}

// UnmarshalYAML decodes the typed fields and retains the source node.
func (c *InputConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain InputConfig
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = InputConfig(p)
	c.raw = value

	return nil
}

// StructuresRef returns options.structures when it is a reference string
// such as "_structures.items".
func (c InputConfig) StructuresRef() string {
	if c.Options == nil {
		return ""
	}
	ref, _ := c.Options.Structures.(string)

	return ref
}

// Node returns the configuration as a YAML node, preferring the node it was
// decoded from.
func (c InputConfig) Node() (*yaml.Node, error) {
	if c.raw != nil {
		return c.raw, nil
	}
	var n yaml.Node
	if err := n.Encode(c); err != nil {
		return nil, err
	}

	return &n, nil
}

// Input pairs a prop name with its input configuration.
type Input struct {
	Name   string
	Config InputConfig
}

// Inputs is the ordered set of inputs declared on a component.
type Inputs []Input

// UnmarshalYAML keeps the mapping order of the document.
func (in *Inputs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("inputs: expected a mapping, got %s", kindName(value.Kind))
	}

	out := make(Inputs, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var cfg InputConfig
		if err := value.Content[i+1].Decode(&cfg); err != nil {
			return fmt.Errorf("inputs.%s: %w", value.Content[i].Value, err)
		}
		out = append(out, Input{Name: value.Content[i].Value, Config: cfg})
	}
	*in = out

	return nil
}

// MarshalJSON writes the inputs as an object in declaration order.
func (in Inputs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, input := range in {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(input.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(input.Config)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Get returns the input declared for name.
func (in Inputs) Get(name string) (InputConfig, bool) {
	for _, input := range in {
		if input.Name == name {
			return input.Config, true
		}
	}

	return InputConfig{}, false
}

// Names returns the declared prop names in order.
func (in Inputs) Names() []string {
	names := make([]string, len(in))
	for i, input := range in {
		names[i] = input.Name
	}

	return names
}

// Field is one key of an ordered value mapping.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered mapping of default values.
type Fields []Field

// UnmarshalYAML keeps the mapping order of the document.
func (f *Fields) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("value: expected a mapping, got %s", kindName(value.Kind))
	}

	out := make(Fields, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var v any
		if err := value.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("value.%s: %w", value.Content[i].Value, err)
		}
		out = append(out, Field{Key: value.Content[i].Value, Value: v})
	}
	*f = out

	return nil
}

// MarshalJSON writes the fields as an object in declaration order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// StructureValue is the parsed structure-value document of a component.
type StructureValue struct {
	Label       string               `yaml:"label,omitempty" json:"label,omitempty"`
	Description string               `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string               `yaml:"icon,omitempty" json:"icon,omitempty"`
	Value       Fields               `yaml:"value,omitempty" json:"value,omitempty"`
	Structures  map[string]yaml.Node `yaml:"_structures,omitempty" json:"-"`
}

// Structure returns the inline structure definition with the given name.
func (s *StructureValue) Structure(name string) (*yaml.Node, bool) {
	if s == nil || s.Structures == nil {
		return nil, false
	}
	n, ok := s.Structures[name]
	if !ok {
		return nil, false
	}

	return &n, true
}

// StructureInputs returns the _inputs block of the first value of an inline
// structure definition.
func (s *StructureValue) StructureInputs(name string) Inputs {
	n, ok := s.Structure(name)
	if !ok {
		return nil
	}

	var def struct {
		Values []struct {
			Inputs Inputs `yaml:"_inputs"`
		} `yaml:"values"`
	}
	if err := n.Decode(&def); err != nil || len(def.Values) == 0 {
		return nil
	}

	return def.Values[0].Inputs
}

// ChildComponent names the wrapper used for the items of a list component.
type ChildComponent struct {
	Name  string   `yaml:"name" json:"name"`
	Props []string `yaml:"props,omitempty" json:"props,omitempty"`
}

// Metadata is the extra per-component information not carried by the
// descriptor itself.
type Metadata struct {
	SupportsSlots  bool            `yaml:"supportsSlots,omitempty" json:"supportsSlots,omitempty"`
	FallbackFor    string          `yaml:"fallbackFor,omitempty" json:"fallbackFor,omitempty"`
	ChildComponent *ChildComponent `yaml:"childComponent,omitempty" json:"childComponent,omitempty"`
}

// Payload is the initialization data a registry is built from.
type Payload struct {
	Components            []*Descriptor       `yaml:"components" json:"components"`
	MetadataMap           map[string]Metadata `yaml:"metadataMap,omitempty" json:"metadataMap,omitempty"`
	NestedBlockProperties []string            `yaml:"nestedBlockProperties,omitempty" json:"nestedBlockProperties,omitempty"`
	PageSectionCategories []string            `yaml:"pageSectionCategories,omitempty" json:"pageSectionCategories,omitempty"`
	NestingRules          map[string][]string `yaml:"nestingRules,omitempty" json:"nestingRules,omitempty"`
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
