package types

import "errors"

// Query is a single retrieval intent supplied by the host: the query
// text, an optional collection scope, and how strongly its results must
// be represented in the final budgeted list.
type Query struct {
	Text        string
	Collections []string // empty means every collection in the request scope
	Importance  Importance
}

// Validate checks the query for basic usability. An empty query is not
// an error at retrieval time (it degrades to no results); this is the
// advisory check for hosts that want early feedback.
func (q *Query) Validate() error {
	if q.Text == "" {
		return errors.New("query text cannot be empty")
	}
	switch q.Importance {
	case "", ImportanceMustHave, ImportanceNiceToHave:
		return nil
	default:
		return errors.New("unknown importance value")
	}
}

// EffectiveImportance returns the query importance, defaulting to
// nice_to_have when unset.
func (q *Query) EffectiveImportance() Importance {
	if q.Importance == ImportanceMustHave {
		return ImportanceMustHave
	}
	return ImportanceNiceToHave
}
