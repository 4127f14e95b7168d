package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/htmlephant/htmlephant/internal/htmldoc"
	"github.com/htmlephant/htmlephant/internal/model"
)

const (
	// jsonNodeMinBytes is the size at which a single JSON node inside a
	// script payload gets its own subcomponent finding.
	jsonNodeMinBytes = 5000

	// jsonMaxDepth bounds recursion into nested objects so adversarial
	// payloads cannot blow the stack.
	jsonMaxDepth = 10
)

// analyzeJSONBloat finds the largest nodes within a JSON script payload and
// reports them as subcomponent findings under the parent identifier. Returns
// nothing when the payload is not a JSON object or fails to parse.
func analyzeJSONBloat(content string, totalBytes int, pageURL, parentIdentifier string) []model.Finding {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil
	}
	return jsonBloatNodes(data, totalBytes, pageURL, parentIdentifier, jsonNodeMinBytes, 0)
}

// jsonBloatNodes walks one object level. The size threshold doubles on each
// recursion so only nodes that dominate their parent keep getting reported.
// Keys are visited in sorted order so output is deterministic.
func jsonBloatNodes(data map[string]any, totalBytes int, pageURL, parentIdentifier string, minNodeBytes, depth int) []model.Finding {
	if depth >= jsonMaxDepth {
		return nil
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var findings []model.Finding
	for _, key := range keys {
		value := data[key]
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		size := len(encoded)
		if size < minNodeBytes {
			continue
		}

		identifier := fmt.Sprintf("%s -> [%q]", parentIdentifier, key)
		findings = append(findings, model.Finding{
			ElementType:       model.ElementJSONNode,
			ElementIdentifier: identifier,
			Description:       fmt.Sprintf("Large JSON node ('%s') in script payload", key),
			Visibility:        model.VisibilityBackend,
			SizeBytes:         size,
			PercentOfPage:     percentOf(size, totalBytes),
			Priority:          model.PriorityPrimary,
			PagesFoundOn:      []string{pageURL},
			SearchableSnippet: fmt.Sprintf("%q: %s", key, htmldoc.CollapseWhitespace(string(encoded), 100)),
			IsSubcomponent:    true,
		})

		if child, ok := value.(map[string]any); ok && size >= minNodeBytes*2 {
			findings = append(findings, jsonBloatNodes(child, totalBytes, pageURL, identifier, minNodeBytes*2, depth+1)...)
		}
	}
	return findings
}
