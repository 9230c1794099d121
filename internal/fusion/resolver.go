package fusion

import "github.com/google/uuid"

// Resolve clusters same-type records in a single greedy pass: the first
// unresolved record opens a cluster and absorbs every later record whose
// similarity to the seed meets threshold; absorbed records are never
// reconsidered as seeds in the same pass. Resolving the same input batch
// twice yields structurally equal clusters (the round-trip law in the
// specification), because the algorithm is a deterministic function of
// input order and threshold.
func Resolve(records []Record, threshold float64) []ResolvedEntity {
	absorbed := make([]bool, len(records))
	var entities []ResolvedEntity

	for i, seed := range records {
		if absorbed[i] {
			continue
		}
		absorbed[i] = true

		cluster := ResolvedEntity{
			EntityID:        uuid.NewString(),
			Type:            seed.Type,
			CanonicalAttrs:  cloneAttrs(seed.Attributes),
			SourceIDs:       []string{seed.ID},
			MergeCandidates: []string{},
		}

		maxScore := 0.0
		for j := i + 1; j < len(records); j++ {
			if absorbed[j] {
				continue
			}
			candidate := records[j]
			if candidate.Type != seed.Type {
				continue
			}
			score := Similarity(seed, candidate)
			if score < threshold {
				continue
			}
			absorbed[j] = true
			cluster.MergeCandidates = append(cluster.MergeCandidates, candidate.ID)
			cluster.AliasSet = append(cluster.AliasSet, candidate.ID)
			cluster.SourceIDs = append(cluster.SourceIDs, candidate.ID)
			if score > maxScore {
				maxScore = score
			}
		}

		if len(cluster.MergeCandidates) == 0 {
			cluster.Confidence = 1.0
		} else {
			cluster.Confidence = maxScore
		}

		entities = append(entities, cluster)
	}

	return entities
}

func cloneAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
