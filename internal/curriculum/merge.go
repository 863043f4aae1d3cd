package curriculum

import (
	"strings"
)

// MergePolicy selects how the natural key of a curriculum record is built.
type MergePolicy int

const (
	// PolicyCurriculum keys on grade, strand, sub-strand and standard code.
	// Rows sharing a standard merge their indicator and exemplar lists.
	PolicyCurriculum MergePolicy = iota
	// PolicyIndicatorFidelity also folds the indicator list into the key so
	// each distinct indicator set keeps its own exemplars.
	PolicyIndicatorFidelity
)

// indicatorKeyLen bounds the indicator part of a fidelity key.
const indicatorKeyLen = 200

func (p MergePolicy) String() string {
	switch p {
	case PolicyIndicatorFidelity:
		return "indicator-fidelity"
	default:
		return "curriculum"
	}
}

// ParsePolicy maps a user-facing name onto a policy. Unknown names fall
// back to PolicyCurriculum.
func ParsePolicy(name string) MergePolicy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "indicator-fidelity", "fidelity", "scheme":
		return PolicyIndicatorFidelity
	default:
		return PolicyCurriculum
	}
}

func keyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MergeKey computes the record's merge key under policy p.
func MergeKey(r CurriculumRecord, p MergePolicy) string {
	parts := []string{
		keyPart(r.GradeLevel),
		keyPart(r.Strand),
		keyPart(r.SubStrand),
		keyPart(r.ContentStandardCode),
	}
	if r.ContentStandardCode == "" || r.ContentStandardCode == PlaceholderCode {
		// Without a real code the description is the only thing telling
		// standards apart.
		parts = append(parts, keyPart(r.ContentStandardDescription))
	}
	if p == PolicyIndicatorFidelity {
		joined := keyPart(strings.Join(r.LearningIndicators, "|"))
		if len(joined) > indicatorKeyLen {
			joined = truncateRunes(joined, indicatorKeyLen)
		}
		parts = append(parts, joined)
	}
	return strings.Join(parts, "\x1f")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// Outcome reports what Add did with a record.
type Outcome int

const (
	Created Outcome = iota
	Merged
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Merged:
		return "merged"
	default:
		return "unchanged"
	}
}

// Merger accumulates curriculum records, folding rows that share a merge
// key into one record. It is not safe for concurrent use.
type Merger struct {
	policy  MergePolicy
	index   map[string]int
	records []CurriculumRecord
	dirty   []bool
}

// NewMerger returns an empty merger using policy p.
func NewMerger(p MergePolicy) *Merger {
	return &Merger{policy: p, index: make(map[string]int)}
}

// Seed loads records that already exist downstream. Seeded records are
// not reported by Changed unless a later Add modifies them.
func (m *Merger) Seed(existing ...CurriculumRecord) {
	for _, r := range existing {
		key := MergeKey(r, m.policy)
		if i, ok := m.index[key]; ok {
			m.records[i] = mergeRecord(m.records[i], r)
			continue
		}
		m.index[key] = len(m.records)
		m.records = append(m.records, cloneRecord(r))
		m.dirty = append(m.dirty, false)
	}
}

// Add folds r into the merger.
func (m *Merger) Add(r CurriculumRecord) Outcome {
	key := MergeKey(r, m.policy)
	i, ok := m.index[key]
	if !ok {
		m.index[key] = len(m.records)
		m.records = append(m.records, cloneRecord(r))
		m.dirty = append(m.dirty, true)
		return Created
	}
	merged := mergeRecord(m.records[i], r)
	if sameLists(merged, m.records[i]) {
		return Unchanged
	}
	m.records[i] = merged
	m.dirty[i] = true
	return Merged
}

// Records returns every record, seeded and added, in first-seen order.
func (m *Merger) Records() []CurriculumRecord {
	out := make([]CurriculumRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Changed returns the records created or modified by Add.
func (m *Merger) Changed() []CurriculumRecord {
	var out []CurriculumRecord
	for i, r := range m.records {
		if m.dirty[i] {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeAndMerge folds records into one record per merge key.
func NormalizeAndMerge(records []CurriculumRecord, p MergePolicy) []CurriculumRecord {
	m := NewMerger(p)
	for _, r := range records {
		m.Add(r)
	}
	return m.Records()
}

func mergeRecord(dst, src CurriculumRecord) CurriculumRecord {
	dst.LearningIndicators = AppendUnique(append([]string(nil), dst.LearningIndicators...), src.LearningIndicators...)
	dst.Exemplars = AppendUnique(append([]string(nil), dst.Exemplars...), src.Exemplars...)
	if dst.Subject == "" {
		dst.Subject = src.Subject
	}
	if dst.ContentStandardDescription == "" {
		dst.ContentStandardDescription = src.ContentStandardDescription
	}
	dst.IsPublic = dst.IsPublic || src.IsPublic
	return dst
}

func cloneRecord(r CurriculumRecord) CurriculumRecord {
	r.LearningIndicators = append([]string(nil), r.LearningIndicators...)
	r.Exemplars = append([]string(nil), r.Exemplars...)
	return r
}

func sameLists(a, b CurriculumRecord) bool {
	return len(a.LearningIndicators) == len(b.LearningIndicators) &&
		len(a.Exemplars) == len(b.Exemplars) &&
		a.Subject == b.Subject &&
		a.ContentStandardDescription == b.ContentStandardDescription &&
		a.IsPublic == b.IsPublic
}
