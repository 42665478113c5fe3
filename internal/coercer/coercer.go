// Package coercer matches a parsed Value against a schema.Node, converting
// near-miss scalars, filling defaults and recording diagnostics with the path
// of every problem. Coercion is a pure function of its inputs.
package coercer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// Option configures a Coercer.
type Option func(*Coercer)

// WithLooseKeys lets a declared field match an input key that differs only
// in case style, e.g. userName for user_name.
func WithLooseKeys(enabled bool) Option {
	return func(c *Coercer) {
		c.looseKeys = enabled
	}
}

// WithUnknownFieldNotes controls the Info diagnostics recorded for input
// fields the schema does not declare. Enabled by default.
func WithUnknownFieldNotes(enabled bool) Option {
	return func(c *Coercer) {
		c.unknownFieldNotes = enabled
	}
}

// Coercer holds coercion options. It has no mutable state and is safe for
// concurrent use.
type Coercer struct {
	looseKeys         bool
	unknownFieldNotes bool
}

// New creates a Coercer.
func New(opts ...Option) *Coercer {
	c := &Coercer{unknownFieldNotes: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coerce matches value against node using a Coercer built from opts.
func Coerce(value models.Value, node *schema.Node, mode Mode, opts ...Option) Result {
	return New(opts...).Coerce(value, node, mode)
}

// Coerce matches value against node. Diagnostics from the whole tree are
// collected in one pass.
func (c *Coercer) Coerce(value models.Value, node *schema.Node, mode Mode) Result {
	r := &run{coercer: c, mode: mode}
	out := r.coerce(value, node, "")

	ok := true
	for _, d := range r.diagnostics {
		if d.Severity == Error {
			ok = false
			break
		}
	}
	return Result{Value: out, Diagnostics: r.diagnostics, OK: ok}
}

// run carries the state of a single coercion.
type run struct {
	coercer     *Coercer
	mode        Mode
	diagnostics []Diagnostic
}

func (r *run) note(severity Severity, path, format string, args ...any) {
	r.diagnostics = append(r.diagnostics, Diagnostic{Severity: severity, Path: path, Message: fmt.Sprintf(format, args...)})
}

// violation records a schema violation: an Error in Strict mode, or a
// Warning plus the substituted default in Soft mode.
func (r *run) violation(node *schema.Node, path, format string, args ...any) models.Value {
	message := fmt.Sprintf(format, args...)
	def := Default(node)
	if r.mode == Soft {
		r.note(Warning, path, "%s; using default %s", message, def)
		return def
	}
	r.note(Error, path, "%s", message)
	return def
}

func (r *run) coerce(v models.Value, node *schema.Node, path string) models.Value {
	switch node.Kind() {
	case schema.KindObject:
		return r.coerceObject(v, node, path)
	case schema.KindList:
		return r.coerceList(v, node, path)
	default:
		return r.coerceScalar(v, node, path)
	}
}

func (r *run) coerceObject(v models.Value, node *schema.Node, path string) models.Value {
	if v.Kind() != models.KindMap {
		return r.violation(node, path, "expected Object, got %s", v.Describe())
	}

	declared := make(map[string]bool)
	for _, f := range node.Fields() {
		declared[f.Name] = true
	}

	consumed := make(map[string]bool)
	members := make([]models.Member, 0, len(node.Fields()))
	for _, f := range node.Fields() {
		fieldPath := joinPath(path, f.Name)

		value, ok := v.Get(f.Name)
		if ok {
			consumed[f.Name] = true
		}
		if (!ok || value.IsNull()) && r.coercer.looseKeys {
			if key, alt, found := looseLookup(v, f.Name, declared, consumed); found {
				consumed[key] = true
				r.note(Info, fieldPath, "matched input key %q", key)
				value, ok = alt, true
			}
		}

		if !ok || value.IsNull() {
			members = append(members, models.Member{Key: f.Name, Value: r.missing(f, fieldPath)})
			continue
		}
		members = append(members, models.Member{Key: f.Name, Value: r.coerce(value, f.Node, fieldPath)})
	}

	if r.coercer.unknownFieldNotes {
		for _, key := range v.Keys() {
			if !declared[key] && !consumed[key] {
				r.note(Info, joinPath(path, key), "ignored undeclared field")
			}
		}
	}
	return models.Map(members...)
}

// missing handles an absent or null field.
func (r *run) missing(f schema.Field, path string) models.Value {
	def := Default(f.Node)
	switch {
	case f.Required && r.mode == Strict:
		r.note(Error, path, "missing required field")
	case f.Required:
		r.note(Warning, path, "missing required field; using default %s", def)
	case r.mode == Strict:
		r.note(Info, path, "missing optional field; using default %s", def)
	default:
		r.note(Warning, path, "missing optional field; using default %s", def)
	}
	return def
}

// looseLookup finds an unclaimed input key that matches name once both are
// normalised to snake_case.
func looseLookup(v models.Value, name string, declared, consumed map[string]bool) (string, models.Value, bool) {
	want := strcase.ToSnake(name)
	for _, m := range v.Members() {
		if declared[m.Key] || consumed[m.Key] || m.Value.IsNull() {
			continue
		}
		if strcase.ToSnake(m.Key) == want {
			return m.Key, m.Value, true
		}
	}
	return "", models.Value{}, false
}

func (r *run) coerceList(v models.Value, node *schema.Node, path string) models.Value {
	elem := node.Elem()

	if v.Kind() == models.KindList {
		items := v.Items()
		out := make([]models.Value, len(items))
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item.IsNull() {
				out[i] = r.violation(elem, itemPath, "expected %s, got Null", elem.TypeName())
				continue
			}
			out[i] = r.coerce(item, elem, itemPath)
		}
		return models.List(out...)
	}

	if !v.IsNull() {
		// A bare value is wrapped when it fits the element schema on its own.
		// The Strict check only decides; the element is coerced again in r.mode.
		check := &run{coercer: r.coercer, mode: Strict}
		check.coerce(v, elem, path+"[0]")
		fits := !check.hasErrors()
		if fits || (r.mode == Soft && v.Kind() == models.KindMap && elem.Kind() == schema.KindObject) {
			r.note(Info, path, "wrapped %s in a single-element list", v.Describe())
			return models.List(r.coerce(v, elem, path+"[0]"))
		}
	}

	return r.violation(node, path, "expected %s, got %s", node.TypeName(), v.Describe())
}

func (r *run) hasErrors() bool {
	for _, d := range r.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (r *run) coerceScalar(v models.Value, node *schema.Node, path string) models.Value {
	if inner, ok := unwrapTyped(v); ok {
		r.note(Info, path, "unwrapped {type, value} wrapper")
		v = inner
	}

	switch node.Kind() {
	case schema.KindString:
		return r.coerceString(v, node, path)
	case schema.KindNumber:
		return r.coerceNumber(v, node, path)
	default:
		return r.coerceBoolean(v, node, path)
	}
}

// unwrapTyped recognises {"type": ..., "value": ...}, a shape some models
// use for every scalar when shown a JSON Schema.
func unwrapTyped(v models.Value) (models.Value, bool) {
	if v.Kind() != models.KindMap || v.Len() != 2 {
		return models.Value{}, false
	}
	if _, ok := v.Get("type"); !ok {
		return models.Value{}, false
	}
	inner, ok := v.Get("value")
	return inner, ok
}

func (r *run) coerceString(v models.Value, node *schema.Node, path string) models.Value {
	var s string
	switch v.Kind() {
	case models.KindString:
		s, _ = v.AsString()
	case models.KindNumber:
		f, _ := v.AsNumber()
		s = models.FormatNumber(f)
		r.note(Info, path, "converted %s to String", v.Describe())
	case models.KindBool:
		b, _ := v.AsBool()
		s = strconv.FormatBool(b)
		r.note(Info, path, "converted %s to String", v.Describe())
	default:
		return r.violation(node, path, "expected %s, got %s", node.TypeName(), v.Describe())
	}

	if !node.IsEnum() {
		return models.String(s)
	}
	return r.matchEnum(s, node, path)
}

func (r *run) matchEnum(s string, node *schema.Node, path string) models.Value {
	literals := node.Enum()
	for _, literal := range literals {
		if s == literal {
			return models.String(literal)
		}
	}
	trimmed := strings.TrimSpace(s)
	for _, literal := range literals {
		if strings.EqualFold(trimmed, literal) {
			r.note(Info, path, "normalised %q to %q", s, literal)
			return models.String(literal)
		}
	}

	quoted := make([]string, len(literals))
	for i, literal := range literals {
		quoted[i] = "'" + literal + "'"
	}
	return r.violation(node, path, "expected one of %s, got %s", strings.Join(quoted, " | "), models.String(s).Describe())
}

func (r *run) coerceNumber(v models.Value, node *schema.Node, path string) models.Value {
	var f float64
	switch v.Kind() {
	case models.KindNumber:
		f, _ = v.AsNumber()
	case models.KindString:
		s, _ := v.AsString()
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return r.violation(node, path, "expected %s, got %s", node.TypeName(), v.Describe())
		}
		f = parsed
		r.note(Info, path, "converted %s to Number", v.Describe())
	default:
		return r.violation(node, path, "expected %s, got %s", node.TypeName(), v.Describe())
	}

	if node.IsInteger() && f != math.Trunc(f) {
		truncated := math.Trunc(f)
		r.note(Warning, path, "truncated %s to integer %s", models.FormatNumber(f), models.FormatNumber(truncated))
		f = truncated
	}
	return models.Number(f)
}

func (r *run) coerceBoolean(v models.Value, node *schema.Node, path string) models.Value {
	switch v.Kind() {
	case models.KindBool:
		return v
	case models.KindString:
		s, _ := v.AsString()
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			r.note(Info, path, "converted %s to Boolean", v.Describe())
			return models.Bool(true)
		case "false", "0":
			r.note(Info, path, "converted %s to Boolean", v.Describe())
			return models.Bool(false)
		}
	case models.KindNumber:
		f, _ := v.AsNumber()
		r.note(Info, path, "converted %s to Boolean", v.Describe())
		return models.Bool(f != 0)
	}
	return r.violation(node, path, "expected %s, got %s", node.TypeName(), v.Describe())
}

// Default returns the value substituted for a missing or unusable node:
// "", 0, false, the first enum literal, an object of defaults or an empty
// list.
func Default(node *schema.Node) models.Value {
	switch node.Kind() {
	case schema.KindString:
		if literals := node.Enum(); len(literals) > 0 {
			return models.String(literals[0])
		}
		return models.String("")
	case schema.KindNumber:
		return models.Number(0)
	case schema.KindBoolean:
		return models.Bool(false)
	case schema.KindObject:
		fields := node.Fields()
		members := make([]models.Member, len(fields))
		for i, f := range fields {
			members[i] = models.Member{Key: f.Name, Value: Default(f.Node)}
		}
		return models.Map(members...)
	default:
		return models.List()
	}
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}
