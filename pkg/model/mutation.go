package model

// BulkOutcome is the backend's reply to a bulk endpoint. The observed
// contract only guarantees an aggregate count; FailedIDs is populated when
// the backend has been upgraded to attribute failures per id.
type BulkOutcome struct {
	SucceededCount int      `json:"succeededCount"`
	FailedIDs      []string `json:"failedIds,omitempty"`
}

// BulkResult reconciles a BulkOutcome against the requested id set. Every
// requested id ends up in SucceededIDs or FailedIDs; when the backend gives
// no per-id attribution and some ids failed, the whole requested set lands in
// FailedIDs so it stays selected for a full retry.
type BulkResult struct {
	RequestedIDs   []string
	SucceededIDs   []string
	FailedIDs      []string
	SucceededCount int
	Attributed     bool
}

// ReconcileBulk maps a backend outcome onto the requested ids.
func ReconcileBulk(requested []string, outcome BulkOutcome) BulkResult {
	res := BulkResult{
		RequestedIDs:   requested,
		SucceededCount: outcome.SucceededCount,
	}

	switch {
	case len(outcome.FailedIDs) > 0:
		failed := make(map[string]bool, len(outcome.FailedIDs))
		for _, id := range outcome.FailedIDs {
			failed[id] = true
		}
		for _, id := range requested {
			if failed[id] {
				res.FailedIDs = append(res.FailedIDs, id)
			} else {
				res.SucceededIDs = append(res.SucceededIDs, id)
			}
		}
		res.SucceededCount = len(res.SucceededIDs)
		res.Attributed = true
	case outcome.SucceededCount >= len(requested):
		res.SucceededIDs = requested
		res.SucceededCount = len(requested)
		res.Attributed = true
	default:
		// Count-only partial failure: no way to tell which ids survived.
		res.FailedIDs = requested
	}
	return res
}

// Partial reports whether some but not all requested ids succeeded.
func (r BulkResult) Partial() bool {
	return r.SucceededCount > 0 && r.SucceededCount < len(r.RequestedIDs)
}

// AllSucceeded reports whether every requested id succeeded.
func (r BulkResult) AllSucceeded() bool {
	return r.SucceededCount == len(r.RequestedIDs)
}

// Err returns the BulkError for a non-fully-successful result, nil otherwise.
func (r BulkResult) Err() error {
	if r.AllSucceeded() {
		return nil
	}
	return &BulkError{
		Requested:  len(r.RequestedIDs),
		Succeeded:  r.SucceededCount,
		FailedIDs:  r.FailedIDs,
		Attributed: r.Attributed,
	}
}
