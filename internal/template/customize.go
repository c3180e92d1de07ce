package template

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Customize overlays the non-empty fields of info onto the project section
// of a template.yaml document. Everything else, key order and comments
// included, is left as written.
func Customize(raw []byte, info ProjectConfig) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("template is not a mapping")
	}

	project := mappingValue(doc.Content[0], "project")
	if project.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("template project section is not a mapping")
	}
	for _, kv := range [][2]string{
		{"name", info.Name},
		{"description", info.Description},
		{"team_size", info.TeamSize},
		{"estimated_duration", info.EstimatedDuration},
	} {
		if kv[1] == "" {
			continue
		}
		v := mappingValue(project, kv[0])
		v.Kind, v.Tag, v.Value, v.Style = yaml.ScalarNode, "!!str", kv[1], 0
		v.Content = nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	return buf.Bytes(), nil
}

// mappingValue returns the value node of key in m, appending an empty
// mapping under key when it is absent.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	v := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	m.Content = append(m.Content, k, v)
	return v
}
