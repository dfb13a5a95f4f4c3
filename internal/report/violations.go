package report

import "sort"

// ViolationSpec describes how a severity bucket breaks down into violations.
type ViolationSpec struct {
	// Dimension is the severity dimension the breakdown applies to.
	Dimension           string
	IDField             string
	DescriptionField    string
	RecommendationField string
	LocationFields      []string
}

// Violation groups the rows sharing one violation identifier.
type Violation struct {
	ID             string `json:"id"`
	Count          int    `json:"count"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	Locations      []Row  `json:"locations"`
}

// GroupViolations groups rows by spec.IDField. Groups are ordered by
// descending count, ties by first appearance. The description and
// recommendation come from the first row of each group. Rows without an
// identifier are skipped.
func GroupViolations(spec ViolationSpec, rows []Row) []Violation {
	index := make(map[string]int)
	var out []Violation
	for _, row := range rows {
		id, ok := row.Value(spec.IDField)
		if !ok {
			continue
		}
		i, seen := index[id]
		if !seen {
			i = len(out)
			index[id] = i
			out = append(out, Violation{
				ID:             id,
				Description:    row[spec.DescriptionField],
				Recommendation: row[spec.RecommendationField],
			})
		}
		out[i].Count++
		out[i].Locations = append(out[i].Locations, row.Project(spec.LocationFields))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
