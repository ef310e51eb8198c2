package sanitize

import (
	"strconv"
	"strings"

	"github.com/okian/trendetl/internal/domain/model"
)

// DefaultCategory is used when the analyzer names no category.
const DefaultCategory = "general"

// Payload keys.
const (
	keySections           = "sections"
	keyCategory           = "category"
	keyDetectedElements   = "detectedElements"
	keyEngagementInsights = "engagementInsights"
	keySimilarityPatterns = "similarityPatterns"
)

// Normalize returns a new tree in canonical shape: an object whose known
// keys are always present. Sections and element lists become lists, a scalar
// engagementInsights becomes a one-element list and a non-string
// similarityPatterns becomes its JSON text. Unknown keys are copied through.
func Normalize(root Node) Node {
	out := make(map[string]Node, len(root.Fields)+5)
	if root.Kind == Object {
		for k, v := range root.Fields {
			out[k] = v.Clone()
		}
	}

	out[keySections] = normalizeSections(root.Get(keySections))

	category := strings.TrimSpace(root.Get(keyCategory).Text())
	if category == "" {
		category = DefaultCategory
	}
	out[keyCategory] = StringNode(category)

	out[keyDetectedElements] = stringList(root.Get(keyDetectedElements))
	out[keyEngagementInsights] = stringList(root.Get(keyEngagementInsights))

	patterns := root.Get(keySimilarityPatterns)
	out[keySimilarityPatterns] = StringNode(patterns.Text())

	return ObjectNode(out)
}

// asList wraps a non-list, non-null value into a one-element list.
func asList(n Node) []Node {
	switch n.Kind {
	case Null:
		return nil
	case List:
		return n.Items
	default:
		return []Node{n}
	}
}

// stringList keeps the non-empty textual form of every non-null element.
func stringList(n Node) Node {
	items := make([]Node, 0)
	for _, it := range asList(n) {
		if it.Kind == Null {
			continue
		}
		if s := strings.TrimSpace(it.Text()); s != "" {
			items = append(items, StringNode(s))
		}
	}
	return ListNode(items...)
}

// normalizeSections keeps object sections, filling missing fields with
// explicit values. End times before the start are raised to the start.
func normalizeSections(n Node) Node {
	items := make([]Node, 0)
	for _, it := range asList(n) {
		if it.Kind != Object {
			continue
		}
		typ := strings.TrimSpace(it.Get("type").Text())
		if typ == "" {
			typ = "segment"
		}
		start := number(it.Get("startTime"))
		end := number(it.Get("endTime"))
		if end < start {
			end = start
		}
		items = append(items, ObjectNode(map[string]Node{
			"type":      StringNode(typ),
			"startTime": NumberNode(start),
			"endTime":   NumberNode(end),
			"label":     StringNode(it.Get("label").Text()),
		}))
	}
	return ListNode(items...)
}

// number reads a Number, or a numeric String, defaulting to 0.
func number(n Node) float64 {
	switch n.Kind {
	case Number:
		return n.Num
	case String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n.Str), 64); err == nil {
			return f
		}
	}
	return 0
}

// Decode reads a normalized tree into an Analysis.
func Decode(n Node) model.Analysis {
	a := model.Analysis{
		Category:           n.Get(keyCategory).Str,
		SimilarityPatterns: n.Get(keySimilarityPatterns).Str,
		Sections:           make([]model.Section, 0),
		DetectedElements:   make([]string, 0),
		EngagementInsights: make([]string, 0),
	}
	for _, s := range n.Get(keySections).Items {
		a.Sections = append(a.Sections, model.Section{
			Type:      s.Get("type").Str,
			StartTime: s.Get("startTime").Num,
			EndTime:   s.Get("endTime").Num,
			Label:     s.Get("label").Str,
		})
	}
	for _, s := range n.Get(keyDetectedElements).Items {
		a.DetectedElements = append(a.DetectedElements, s.Str)
	}
	for _, s := range n.Get(keyEngagementInsights).Items {
		a.EngagementInsights = append(a.EngagementInsights, s.Str)
	}
	return a
}

// Analysis sanitizes a raw analyzer payload end to end.
func Analysis(raw map[string]any) model.Analysis {
	return Decode(Normalize(FromAny(raw)))
}
