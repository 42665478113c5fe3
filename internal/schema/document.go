package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/parser"
)

// ParseFile reads a JSON Schema document from a file. Files ending in .yaml
// or .yml are read as YAML, everything else as JSON.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("schema file '%s' not found", path), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError(fmt.Sprintf("failed to read schema file '%s'", path), err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

// ParseBytes parses a JSON Schema document. A document starting with '{' is
// read as JSON, anything else as YAML.
func ParseBytes(data []byte) (*Node, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.NewSchemaError("schema document is empty", errors.ErrEmptyInput)
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseJSON(data)
	}
	return parseYAML(data)
}

// ParseString parses a JSON Schema document from a string.
func ParseString(s string) (*Node, error) {
	return ParseBytes([]byte(s))
}

func parseJSON(data []byte) (*Node, error) {
	doc, err := parser.ParseString(string(data))
	if err != nil {
		return nil, errors.NewSchemaError("failed to parse JSON Schema", err)
	}
	return FromDocument(doc)
}

func parseYAML(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.NewSchemaError("failed to parse YAML schema", err)
	}
	doc, err := yamlToValue(&root)
	if err != nil {
		return nil, errors.NewSchemaError("failed to read YAML schema", err)
	}
	return FromDocument(doc)
}

// yamlToValue converts a decoded YAML tree into a Value, keeping mapping
// order so properties are declared in document order.
func yamlToValue(n *yaml.Node) (models.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return models.Value{}, errors.ErrEmptyInput
		}
		return yamlToValue(n.Content[0])
	case yaml.AliasNode:
		return yamlToValue(n.Alias)
	case yaml.MappingNode:
		members := make([]models.Member, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			value, err := yamlToValue(n.Content[i+1])
			if err != nil {
				return models.Value{}, err
			}
			members = append(members, models.Member{Key: n.Content[i].Value, Value: value})
		}
		return models.Map(members...), nil
	case yaml.SequenceNode:
		items := make([]models.Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := yamlToValue(c)
			if err != nil {
				return models.Value{}, err
			}
			items = append(items, item)
		}
		return models.List(items...), nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return models.Null(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return models.Value{}, err
			}
			return models.Bool(b), nil
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return models.Value{}, err
			}
			return models.Number(f), nil
		default:
			return models.String(n.Value), nil
		}
	default:
		return models.Value{}, fmt.Errorf("unsupported YAML node at line %d", n.Line)
	}
}

// FromDocument converts a parsed JSON Schema document into a Node.
//
// The supported subset is type (a name or a list of names, where "null"
// marks the field optional), properties, required, items, enum of strings,
// description, local $ref into definitions or $defs, allOf merging and
// anyOf/oneOf with a single non-null alternative. A node without a type
// falls back to String.
func FromDocument(doc models.Value) (*Node, error) {
	c := newConverter(doc)
	node, _, err := c.convert(doc, "$")
	if err != nil {
		return nil, err
	}
	return node, nil
}

// converter resolves local references while walking a document.
type converter struct {
	definitions map[string]models.Value
	resolving   map[string]bool
}

func newConverter(doc models.Value) *converter {
	definitions := make(map[string]models.Value)
	for _, key := range []string{"definitions", "$defs"} {
		defs, ok := doc.Get(key)
		if !ok {
			continue
		}
		for _, m := range defs.Members() {
			definitions["#/"+key+"/"+m.Key] = m.Value
		}
	}
	return &converter{definitions: definitions, resolving: make(map[string]bool)}
}

// convert returns the node for doc and whether doc admits null.
func (c *converter) convert(doc models.Value, path string) (*Node, bool, error) {
	if doc.Kind() != models.KindMap {
		return nil, false, c.errorf(path, "expected a schema object, got %s", doc.Kind())
	}

	if ref, ok := stringMember(doc, "$ref"); ok {
		return c.resolveRef(doc, ref, path)
	}

	if allOf, ok := doc.Get("allOf"); ok {
		merged, err := c.mergeAllOf(doc, allOf, path)
		if err != nil {
			return nil, false, err
		}
		return c.convert(merged, path)
	}

	for _, key := range []string{"anyOf", "oneOf"} {
		if alternatives, ok := doc.Get(key); ok {
			return c.convertAlternatives(doc, key, alternatives, path)
		}
	}

	typeName, nullable, err := c.typeOf(doc, path)
	if err != nil {
		return nil, false, err
	}

	var node *Node
	switch typeName {
	case "string":
		node, err = c.convertString(doc, path)
	case "integer":
		node = Integer()
	case "number":
		node = Number()
	case "boolean":
		node = Boolean()
	case "object":
		node, err = c.convertObject(doc, path)
	case "array":
		node, err = c.convertArray(doc, path)
	default:
		err = c.errorf(path, "unsupported type %q", typeName)
	}
	if err != nil {
		return nil, false, err
	}

	if description, ok := stringMember(doc, "description"); ok {
		node = node.WithDescription(description)
	}
	return node, nullable, nil
}

// typeOf reads the type keyword. "null" entries are removed and reported as
// nullable. Without a type keyword the type is inferred from the other
// keywords.
func (c *converter) typeOf(doc models.Value, path string) (string, bool, error) {
	raw, ok := doc.Get("type")
	if !ok {
		switch {
		case hasMember(doc, "properties"):
			return "object", false, nil
		case hasMember(doc, "items"):
			return "array", false, nil
		default:
			return "string", false, nil
		}
	}

	var names []string
	switch raw.Kind() {
	case models.KindString:
		s, _ := raw.AsString()
		names = []string{s}
	case models.KindList:
		for _, item := range raw.Items() {
			s, ok := item.AsString()
			if !ok {
				return "", false, c.errorf(path, "type list must hold strings")
			}
			names = append(names, s)
		}
	default:
		return "", false, c.errorf(path, "type must be a string or a list of strings")
	}

	nullable := false
	primary := ""
	for _, name := range names {
		if name == "null" {
			nullable = true
			continue
		}
		if primary == "" {
			primary = name
		}
	}
	if primary == "" {
		return "", false, c.errorf(path, "a schema that only admits null has no value shape")
	}
	return primary, nullable, nil
}

func (c *converter) convertString(doc models.Value, path string) (*Node, error) {
	raw, ok := doc.Get("enum")
	if !ok {
		return String(), nil
	}
	if raw.Kind() != models.KindList || raw.Len() == 0 {
		return nil, c.errorf(path, "enum must be a non-empty list")
	}
	literals := make([]string, 0, raw.Len())
	for _, item := range raw.Items() {
		if item.IsNull() {
			continue
		}
		s, ok := item.AsString()
		if !ok {
			return nil, c.errorf(path, "enum values must be strings, got %s", item.Describe())
		}
		literals = append(literals, s)
	}
	if len(literals) == 0 {
		return nil, c.errorf(path, "enum must hold at least one string")
	}
	return Enum(literals...), nil
}

func (c *converter) convertObject(doc models.Value, path string) (*Node, error) {
	required := make(map[string]bool)
	if raw, ok := doc.Get("required"); ok {
		for _, item := range raw.Items() {
			if s, ok := item.AsString(); ok {
				required[s] = true
			}
		}
	}

	properties, _ := doc.Get("properties")
	fields := make([]Field, 0, properties.Len())
	for _, m := range properties.Members() {
		node, nullable, err := c.convert(m.Value, path+"."+m.Key)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{
			Name:     m.Key,
			Node:     node,
			Required: required[m.Key] && !nullable,
		})
	}
	return Object(fields...), nil
}

func (c *converter) convertArray(doc models.Value, path string) (*Node, error) {
	items, ok := doc.Get("items")
	if !ok {
		return List(String()), nil
	}
	elem, _, err := c.convert(items, path+"[]")
	if err != nil {
		return nil, err
	}
	return List(elem), nil
}

func (c *converter) resolveRef(doc models.Value, ref, path string) (*Node, bool, error) {
	if !strings.HasPrefix(ref, "#/definitions/") && !strings.HasPrefix(ref, "#/$defs/") {
		return nil, false, c.errorf(path, "external $ref not supported: %s", ref)
	}
	target, ok := c.definitions[ref]
	if !ok {
		return nil, false, c.errorf(path, "unresolved $ref: %s", ref)
	}
	if c.resolving[ref] {
		return nil, false, c.errorf(path, "recursive $ref %s cannot be described by a finite schema", ref)
	}

	c.resolving[ref] = true
	defer delete(c.resolving, ref)

	node, nullable, err := c.convert(target, path)
	if err != nil {
		return nil, false, err
	}
	if description, ok := stringMember(doc, "description"); ok {
		node = node.WithDescription(description)
	}
	return node, nullable, nil
}

// mergeAllOf folds the allOf members into one object document. Properties
// keep first-seen order; later definitions of a property win.
func (c *converter) mergeAllOf(doc, allOf models.Value, path string) (models.Value, error) {
	if allOf.Kind() != models.KindList {
		return models.Value{}, c.errorf(path, "allOf must be a list")
	}

	var properties []models.Member
	var required []models.Value
	description, _ := stringMember(doc, "description")

	for i, part := range allOf.Items() {
		resolved := part
		if ref, ok := stringMember(part, "$ref"); ok {
			target, ok := c.definitions[ref]
			if !ok {
				return models.Value{}, c.errorf(fmt.Sprintf("%s.allOf[%d]", path, i), "unresolved $ref: %s", ref)
			}
			resolved = target
		}
		if props, ok := resolved.Get("properties"); ok {
			properties = append(properties, props.Members()...)
		}
		if req, ok := resolved.Get("required"); ok {
			required = append(required, req.Items()...)
		}
		if description == "" {
			description, _ = stringMember(resolved, "description")
		}
	}

	members := []models.Member{
		{Key: "type", Value: models.String("object")},
		{Key: "properties", Value: models.Map(properties...)},
		{Key: "required", Value: models.List(required...)},
	}
	if description != "" {
		members = append(members, models.Member{Key: "description", Value: models.String(description)})
	}
	return models.Map(members...), nil
}

// convertAlternatives accepts the nullable pattern [X, {"type": "null"}].
func (c *converter) convertAlternatives(doc models.Value, key string, alternatives models.Value, path string) (*Node, bool, error) {
	var chosen []models.Value
	nullable := false
	for _, alt := range alternatives.Items() {
		if t, ok := stringMember(alt, "type"); ok && t == "null" {
			nullable = true
			continue
		}
		chosen = append(chosen, alt)
	}
	if len(chosen) != 1 {
		return nil, false, c.errorf(path, "%s must have exactly one non-null alternative", key)
	}

	node, altNullable, err := c.convert(chosen[0], path)
	if err != nil {
		return nil, false, err
	}
	if description, ok := stringMember(doc, "description"); ok {
		node = node.WithDescription(description)
	}
	return node, nullable || altNullable, nil
}

func (c *converter) errorf(path, format string, args ...any) error {
	return errors.NewSchemaError(fmt.Sprintf("%s: %s", path, fmt.Sprintf(format, args...)), nil)
}

func stringMember(v models.Value, key string) (string, bool) {
	member, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return member.AsString()
}

func hasMember(v models.Value, key string) bool {
	_, ok := v.Get(key)
	return ok
}
