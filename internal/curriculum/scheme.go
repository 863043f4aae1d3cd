package curriculum

import "strings"

// SchemeKey is the (week, subject, class) merge key of a scheme item.
func SchemeKey(s SchemeItem) string {
	return keyPart(s.Week) + "\x1f" + keyPart(s.Subject) + "\x1f" + keyPart(s.ClassLevel)
}

// SchemeMerger folds scheme items that share a week, subject and class.
type SchemeMerger struct {
	index map[string]int
	items []SchemeItem
	dirty []bool
}

// NewSchemeMerger returns an empty SchemeMerger.
func NewSchemeMerger() *SchemeMerger {
	return &SchemeMerger{index: make(map[string]int)}
}

// Seed loads existing items without marking them changed.
func (m *SchemeMerger) Seed(existing ...SchemeItem) {
	for _, it := range existing {
		it = it.Normalize()
		key := SchemeKey(it)
		if i, ok := m.index[key]; ok {
			m.items[i] = mergeScheme(m.items[i], it)
			continue
		}
		m.index[key] = len(m.items)
		m.items = append(m.items, it)
		m.dirty = append(m.dirty, false)
	}
}

// Add normalizes and folds it into the merger.
func (m *SchemeMerger) Add(it SchemeItem) Outcome {
	it = it.Normalize()
	key := SchemeKey(it)
	i, ok := m.index[key]
	if !ok {
		m.index[key] = len(m.items)
		m.items = append(m.items, it)
		m.dirty = append(m.dirty, true)
		return Created
	}
	merged := mergeScheme(m.items[i], it)
	if merged == m.items[i] {
		return Unchanged
	}
	m.items[i] = merged
	m.dirty[i] = true
	return Merged
}

// Items returns all items in first-seen order.
func (m *SchemeMerger) Items() []SchemeItem {
	out := make([]SchemeItem, len(m.items))
	copy(out, m.items)
	return out
}

// Changed returns the items created or modified by Add.
func (m *SchemeMerger) Changed() []SchemeItem {
	var out []SchemeItem
	for i, it := range m.items {
		if m.dirty[i] {
			out = append(out, it)
		}
	}
	return out
}

// MergeScheme folds items into one entry per scheme key.
func MergeScheme(items []SchemeItem) []SchemeItem {
	m := NewSchemeMerger()
	for _, it := range items {
		m.Add(it)
	}
	return m.Items()
}

func mergeScheme(dst, src SchemeItem) SchemeItem {
	dst.WeekEnding = firstNonEmpty(dst.WeekEnding, src.WeekEnding)
	dst.Term = firstNonEmpty(dst.Term, src.Term)
	dst.Strand = MergeLines(dst.Strand, src.Strand)
	dst.SubStrand = MergeLines(dst.SubStrand, src.SubStrand)
	dst.ContentStandard = MergeLines(dst.ContentStandard, src.ContentStandard)
	dst.Indicators = MergeLines(dst.Indicators, src.Indicators)
	dst.Exemplars = MergeLines(dst.Exemplars, src.Exemplars)
	dst.Resources = MergeCommaList(dst.Resources, src.Resources)
	return dst
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
