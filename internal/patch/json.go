package patch

import (
	"encoding/json"
	"fmt"
)

// mergeJSONKey sets the nested key path to value inside a JSON object,
// creating intermediate objects. Existing values are kept. The document is
// re-encoded with two-space indentation.
func mergeJSONKey(content string, path []string, value any) (string, error) {
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}

	node := doc
	for i, key := range path {
		if i == len(path)-1 {
			if _, ok := node[key]; !ok {
				node[key] = value
			}
			break
		}
		child, ok := node[key].(map[string]any)
		if !ok {
			if node[key] != nil {
				return "", fmt.Errorf("%q is not an object", key)
			}
			child = map[string]any{}
			node[key] = child
		}
		node = child
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}
