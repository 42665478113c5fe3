package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/formatter"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// structDef is one Go struct collected while walking a schema.
type structDef struct {
	name   string
	doc    string
	fields []structField
}

type structField struct {
	goName  string
	goType  string
	jsonTag string
	comment string
}

// GoSource renders Go type declarations that Result.Decode can fill for
// node. Objects become structs named after their path from rootName;
// optional scalars become pointers.
func GoSource(node *schema.Node, rootName, packageName string) (string, error) {
	if rootName == "" {
		rootName = "Response"
	}
	if packageName == "" {
		packageName = "main"
	}

	w := &structWriter{names: make(map[string]int)}
	rootType := w.goType(node, strcase.ToCamel(rootName), true)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "package %s\n", packageName)

	if node.Kind() != schema.KindObject {
		buf.WriteString("\n")
		if node.Description() != "" {
			fmt.Fprintf(&buf, "// %s %s\n", strcase.ToCamel(rootName), oneLine(node.Description()))
		}
		fmt.Fprintf(&buf, "type %s %s\n", strcase.ToCamel(rootName), rootType)
	}

	for _, def := range w.structs {
		buf.WriteString("\n")
		if def.doc != "" {
			fmt.Fprintf(&buf, "// %s %s\n", def.name, def.doc)
		}
		fmt.Fprintf(&buf, "type %s struct {\n", def.name)
		for _, f := range def.fields {
			line := fmt.Sprintf("\t%s %s %s", f.goName, f.goType, f.jsonTag)
			if f.comment != "" {
				line += " // " + f.comment
			}
			buf.WriteString(line + "\n")
		}
		buf.WriteString("}\n")
	}

	// gofmt aligns the field columns.
	formatted, err := formatter.NewFormatter().FormatGo(buf.String())
	if err != nil {
		return "", errors.NewGenerateError("failed to format generated Go source", err)
	}
	return formatted, nil
}

type structWriter struct {
	structs []structDef
	names   map[string]int
}

// goType returns the Go type expression for node, collecting struct
// declarations for objects along the way. Structs are emitted parent first.
func (w *structWriter) goType(node *schema.Node, suggestedName string, isRoot bool) string {
	switch node.Kind() {
	case schema.KindObject:
		return w.addStruct(node, suggestedName)
	case schema.KindList:
		elemName := singularize(suggestedName)
		if isRoot {
			elemName = suggestedName + "Item"
		}
		return "[]" + w.goType(node.Elem(), elemName, false)
	case schema.KindNumber:
		if node.IsInteger() {
			return "int64"
		}
		return "float64"
	case schema.KindBoolean:
		return "bool"
	default:
		return "string"
	}
}

func (w *structWriter) addStruct(node *schema.Node, suggestedName string) string {
	name := w.uniqueName(suggestedName)
	index := len(w.structs)
	w.structs = append(w.structs, structDef{name: name, doc: oneLine(node.Description())})

	fields := node.Fields()
	out := make([]structField, 0, len(fields))
	for _, f := range fields {
		goName := strcase.ToCamel(f.Name)
		if goName == "" {
			goName = "Field"
		}
		goType := w.goType(f.Node, name+goName, false)

		tag := f.Name
		if !f.Required {
			tag += ",omitempty"
			if f.Node.IsScalar() {
				goType = "*" + goType
			}
		}

		out = append(out, structField{
			goName:  goName,
			goType:  goType,
			jsonTag: fmt.Sprintf("`json:\"%s\"`", tag),
			comment: fieldComment(f),
		})
	}
	w.structs[index].fields = out
	return name
}

func fieldComment(f schema.Field) string {
	description := f.Description
	if description == "" {
		description = f.Node.Description()
	}
	description = oneLine(description)
	if literals := f.Node.Enum(); len(literals) > 0 {
		allowed := "one of " + strings.Join(literals, ", ")
		if description == "" {
			return allowed
		}
		return description + " (" + allowed + ")"
	}
	return description
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// uniqueName ensures struct names are unique
func (w *structWriter) uniqueName(baseName string) string {
	name := baseName
	count := w.names[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	w.names[baseName] = count + 1
	return name
}

// singularize attempts to singularize a name
func singularize(s string) string {
	lower := strings.ToLower(s)

	switch {
	case strings.HasSuffix(lower, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(lower, "sses") && len(s) > 4:
		return s[:len(s)-2]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") && len(s) > 1:
		return s[:len(s)-1]
	}
	return s
}
