package apperror

// BatchFailure records why one element of a batch failed
type BatchFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// BatchResult reports a batch whose elements commit independently.
// Successes are never rolled back by later failures.
type BatchResult struct {
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	SucceededIDs []int64        `json:"succeeded_ids"`
	Failures     []BatchFailure `json:"failures,omitempty"`
}

// RecordSuccess counts id as committed
func (r *BatchResult) RecordSuccess(id int64) {
	r.Succeeded++
	r.SucceededIDs = append(r.SucceededIDs, id)
}

// RecordFailure counts id as failed
func (r *BatchResult) RecordFailure(id int64, err error) {
	r.Failed++
	r.Failures = append(r.Failures, BatchFailure{ID: id, Error: UserMessage(err)})
}

// Partial reports whether some but not all elements committed
func (r *BatchResult) Partial() bool {
	return r.Succeeded > 0 && r.Failed > 0
}
