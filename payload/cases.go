package payload

// Case is one canonical acceptance scenario
type Case struct {
	Name string
	File string
	Spec Spec
}

// Cases returns the canonical acceptance scenarios at the given target
// size: full pairing, fully disjoint sides, each side alone, and empty.
func Cases(targetSize int64) []Case {
	return []Case{
		{
			Name: "match",
			File: "case_match.json",
			Spec: Spec{TargetSize: targetSize, BaseFirst: 3, BaseLast: 3, OverlapRatio: 1.0},
		},
		{
			Name: "unpaired",
			File: "case_unpaired.json",
			Spec: Spec{TargetSize: targetSize, BaseFirst: 3, BaseLast: 3, OverlapRatio: 0.0},
		},
		{
			Name: "only_first",
			File: "case_only_first.json",
			Spec: Spec{TargetSize: targetSize, BaseFirst: 3, BaseLast: 0, OverlapRatio: 0.5},
		},
		{
			Name: "only_last",
			File: "case_only_last.json",
			Spec: Spec{TargetSize: targetSize, BaseFirst: 0, BaseLast: 3, OverlapRatio: 0.5},
		},
		{
			Name: "empty",
			File: "case_empty.json",
			Spec: Spec{TargetSize: targetSize, BaseFirst: 0, BaseLast: 0, OverlapRatio: 0.5},
		},
	}
}
