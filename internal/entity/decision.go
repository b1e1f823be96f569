package entity

// Decision is one recorded reasoning step ("brain state") of the
// automation oracle. Immutable once recorded; a decision owns one or
// more actions, linked by Action.DecisionID.
type Decision struct {
	ID         string `json:"id"`
	Evaluation string `json:"evaluation_previous_goal"`
	Memory     string `json:"memory"`
	NextGoal   string `json:"next_goal"`
}
