package engine

// StepQuota counts RuleSet applications for one run and enforces the
// step limit.
//
// Exhaustion is only consulted when a RuleSet is still applicable: a chain
// that needs exactly Limit steps and then finds nothing to apply ends as
// Terminated, not Aborted.
type StepQuota struct {
	limit int
	used  int
}

// NewStepQuota creates a quota allowing limit steps.
func NewStepQuota(limit int) *StepQuota {
	return &StepQuota{limit: limit}
}

// Exhausted reports whether no further step may be taken.
func (q *StepQuota) Exhausted() bool {
	return q.used >= q.limit
}

// Consume records one step. It returns false, without counting, when the
// quota is already exhausted.
func (q *StepQuota) Consume() bool {
	if q.Exhausted() {
		return false
	}
	q.used++
	return true
}

// Used returns the number of steps taken.
func (q *StepQuota) Used() int {
	return q.used
}

// Limit returns the step limit.
func (q *StepQuota) Limit() int {
	return q.limit
}
