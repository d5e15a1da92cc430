package engine

// Outcome classifies a resolution result.
type Outcome int

const (
	NoMatch Outcome = iota
	SingleMatch
	MultipleMatches
)

// Resolution is the result of matching a query against the ledger index.
// Candidates is empty for NoMatch, length 1 for SingleMatch, and in stable
// ledger row order for MultipleMatches.
type Resolution struct {
	Outcome    Outcome
	Candidates []MatchCandidate
}

// Resolve matches a query by normalized exact name equality only; there is
// no fuzzy or partial matching. All of a name's open credits are returned
// regardless of whether their remaining installments are compatible with
// the requested count: compatibility is checked in Compose, so the operator
// can still see and explicitly pick an option that would be overpaid,
// instead of having it silently hidden.
func Resolve(ix *Index, q MatchQuery) (Resolution, error) {
	key, err := NormalizeName(q.RawName)
	if err != nil {
		return Resolution{}, err
	}

	candidates := ix.Lookup(key)
	switch len(candidates) {
	case 0:
		return Resolution{Outcome: NoMatch}, nil
	case 1:
		return Resolution{Outcome: SingleMatch, Candidates: candidates}, nil
	default:
		return Resolution{Outcome: MultipleMatches, Candidates: candidates}, nil
	}
}
