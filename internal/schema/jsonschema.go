package schema

import (
	"github.com/WaveAssist/WaveAssist/internal/models"
)

// JSONSchema renders n as a JSON Schema document. Properties keep
// declaration order and objects are closed with additionalProperties false,
// which strict structured-output endpoints require.
func (n *Node) JSONSchema() models.Value {
	return n.jsonSchema("")
}

func (n *Node) jsonSchema(description string) models.Value {
	if description == "" {
		description = n.description
	}

	var members []models.Member
	switch n.kind {
	case KindString:
		members = append(members, models.Member{Key: "type", Value: models.String("string")})
		if len(n.enum) > 0 {
			literals := make([]models.Value, len(n.enum))
			for i, v := range n.enum {
				literals[i] = models.String(v)
			}
			members = append(members, models.Member{Key: "enum", Value: models.List(literals...)})
		}
	case KindNumber:
		typeName := "number"
		if n.integer {
			typeName = "integer"
		}
		members = append(members, models.Member{Key: "type", Value: models.String(typeName)})
	case KindBoolean:
		members = append(members, models.Member{Key: "type", Value: models.String("boolean")})
	case KindObject:
		properties := make([]models.Member, 0, len(n.fields))
		required := make([]models.Value, 0, len(n.fields))
		for _, f := range n.fields {
			properties = append(properties, models.Member{Key: f.Name, Value: f.Node.jsonSchema(f.Description)})
			if f.Required {
				required = append(required, models.String(f.Name))
			}
		}
		members = append(members,
			models.Member{Key: "type", Value: models.String("object")},
			models.Member{Key: "properties", Value: models.Map(properties...)},
			models.Member{Key: "required", Value: models.List(required...)},
			models.Member{Key: "additionalProperties", Value: models.Bool(false)},
		)
	case KindList:
		members = append(members,
			models.Member{Key: "type", Value: models.String("array")},
			models.Member{Key: "items", Value: n.elem.jsonSchema("")},
		)
	}

	if description != "" {
		members = append(members, models.Member{Key: "description", Value: models.String(description)})
	}
	return models.Map(members...)
}
