package pipeline

// GroupSpan is one contiguous run of file indices that render (or get
// grouped for meta-accounting purposes) as a single FileGroup, per spec.md
// §4.7's Planner policy.
type GroupSpan struct {
	Start, End int // half-open range [Start, End) into the caller's file slice
	Language   string
	Mixed      bool
}

// PlanGroups implements the §4.7 grouping policy over an ordered slice of
// per-file language hints:
//
//   - useFence: split into maximal consecutive runs of identical hint, each
//     its own (never mixed) group.
//   - !useFence: a single group spanning every file, mixed iff more than one
//     distinct hint appears.
//
// The same policy drives both the adapter pipeline's `_group_size`/
// `_group_mixed` meta (computed over FileEntry hints, before processing) and
// the renderer's final grouping (computed over ProcessedFile hints, after).
// Both see the same hints, so the two groupings agree.
func PlanGroups(hints []string, useFence bool) []GroupSpan {
	if len(hints) == 0 {
		return nil
	}
	if !useFence {
		distinct := map[string]bool{}
		for _, h := range hints {
			distinct[h] = true
		}
		return []GroupSpan{{Start: 0, End: len(hints), Mixed: len(distinct) > 1}}
	}
	spans := make([]GroupSpan, 0, len(hints))
	start := 0
	for i := 1; i <= len(hints); i++ {
		if i == len(hints) || hints[i] != hints[start] {
			spans = append(spans, GroupSpan{Start: start, End: i, Language: hints[start]})
			start = i
		}
	}
	return spans
}

// SpanForIndex returns the span containing index i, or the zero GroupSpan
// and false if i falls outside every span.
func SpanForIndex(spans []GroupSpan, i int) (GroupSpan, bool) {
	for _, s := range spans {
		if i >= s.Start && i < s.End {
			return s, true
		}
	}
	return GroupSpan{}, false
}
