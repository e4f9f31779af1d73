package recommend

import (
	"math"
	"sort"
	"strings"
)

// Quantities maps a user id to the quantity they ordered of each dish id.
type Quantities map[string]map[string]float64

func cosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, va := range a {
		na += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mostSimilar finds the user whose order history is the closest to userID's.
// Ties go to the smallest user id. ok is false when userID is the only user.
func (q Quantities) mostSimilar(userID string) (string, bool) {
	var (
		best    string
		bestSim = -1.0
	)
	for other, vec := range q {
		if other == userID {
			continue
		}
		sim := cosine(q[userID], vec)
		if sim > bestSim || (sim == bestSim && other < best) {
			best, bestSim = other, sim
		}
	}
	return best, bestSim >= 0
}

// collaborative scores the dishes the most similar user ordered more of than userID.
func (q Quantities) collaborative(userID string) map[string]float64 {
	scores := make(map[string]float64)
	other, ok := q.mostSimilar(userID)
	if !ok {
		return scores
	}
	mine := q[userID]
	for dishID, qty := range q[other] {
		if diff := qty - mine[dishID]; diff > 0 {
			scores[dishID] = diff
		}
	}
	return scores
}

// popularity sums the quantities ordered of each dish.
func (q Quantities) popularity() map[string]float64 {
	totals := make(map[string]float64)
	for _, vec := range q {
		for dishID, qty := range vec {
			totals[dishID] += qty
		}
	}
	return totals
}

type featureSet map[string]struct{}

func features(lists ...[]string) featureSet {
	fs := make(featureSet)
	for _, l := range lists {
		for _, v := range l {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				fs[v] = struct{}{}
			}
		}
	}
	return fs
}

func jaccard(a, b featureSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// contentScore is the mean similarity of a candidate to the dishes a user ordered.
func contentScore(candidate featureSet, ordered []featureSet) float64 {
	if len(ordered) == 0 {
		return 0
	}
	var sum float64
	for _, fs := range ordered {
		sum += jaccard(candidate, fs)
	}
	return sum / float64(len(ordered))
}

// feedbackBoost scales scores by the restaurant's average rating. Unrated restaurants are neutral.
func feedbackBoost(rating float64, rated bool) float64 {
	if !rated {
		return 1
	}
	return rating / 5
}

type scored struct {
	id, name string
	score    float64
}

// rank sorts by descending score, then name, then id, and keeps the first limit entries.
func rank(items []scored, limit int) []scored {
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		if items[i].name != items[j].name {
			return items[i].name < items[j].name
		}
		return items[i].id < items[j].id
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
