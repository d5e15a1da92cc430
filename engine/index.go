package engine

// Index is an in-memory read-through view over the master ledger, keyed by
// normalized client name and filtered to open credits. It is rebuilt per
// request cycle: the external ledger is the source of truth and may change
// between requests, so nothing is cached across queries.
type Index struct {
	byName map[string][]MatchCandidate
}

// BuildIndex maps normalized (first, last) keys to the ordered list of open
// credits sharing that key. Ledger row order is preserved, which makes
// candidate ordering stable and reproducible. Rows that fail to parse are
// skipped (see ParseCredit).
func BuildIndex(rows []Row) *Index {
	ix := &Index{byName: make(map[string][]MatchCandidate)}
	for _, row := range rows {
		credit, err := ParseCredit(row)
		if err != nil {
			continue
		}
		if !credit.Open() {
			continue
		}
		key, err := NameKey(credit.FirstName, credit.LastName)
		if err != nil {
			continue
		}
		ix.byName[key] = append(ix.byName[key], MatchCandidate{Credit: credit, Position: row.Position})
	}
	return ix
}

// Lookup returns the open credits for a normalized name key, in ledger row
// order. A missing key yields an empty slice, never an error.
func (ix *Index) Lookup(key string) []MatchCandidate {
	return ix.byName[key]
}
