package planning

// Status is the lifecycle state of an assignment.
//
//	planned -> in_progress -> completed
//	planned | in_progress -> cancelled
//
// completed and cancelled are terminal.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPlanned:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus accepts the wire names of the statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Message: "must be planned, in_progress, completed or cancelled"}
	}
	return st, nil
}

// CanTransition reports whether from -> to is a legal move. Staying in the
// same status is not a transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns an InvalidTransitionError for illegal moves.
func checkTransition(id AssignmentID, from, to Status) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Message: "must be planned, in_progress, completed or cancelled"}
	}
	if !CanTransition(from, to) {
		return &InvalidTransitionError{AssignmentID: id, From: from, To: to}
	}
	return nil
}
