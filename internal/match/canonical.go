package match

import "cadenza/internal/catalog"

// Canonical holds the representative metadata chosen for a match group.
type Canonical struct {
	Title string
	ISWC  string
}

// SelectCanonical picks representative metadata from group members.
// The ISWC is the most common normalized ISWC among members; ties break
// toward the first seen. The title comes from the most recently updated
// member that has one.
func SelectCanonical(members []*catalog.Work) Canonical {
	var out Canonical
	if len(members) == 0 {
		return out
	}

	iswcCounts := make(map[string]int)
	iswcOrder := make([]string, 0, len(members))
	for _, w := range members {
		iswc := catalog.NormalizeISWC(w.ISWC)
		if iswc == "" {
			continue
		}
		if _, seen := iswcCounts[iswc]; !seen {
			iswcOrder = append(iswcOrder, iswc)
		}
		iswcCounts[iswc]++
	}
	best := 0
	for _, iswc := range iswcOrder {
		if iswcCounts[iswc] > best {
			best = iswcCounts[iswc]
			out.ISWC = iswc
		}
	}

	var latest *catalog.Work
	for _, w := range members {
		if w.Title == "" {
			continue
		}
		if latest == nil || w.UpdatedAt.After(latest.UpdatedAt) {
			latest = w
		}
	}
	if latest != nil {
		out.Title = DisplayTitle(latest.Title)
	}
	return out
}
