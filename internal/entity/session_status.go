package entity

type SessionStatus string

const (
	SessionStatusWaiting          SessionStatus = "waiting"
	SessionStatusUploaded         SessionStatus = "uploaded"
	SessionStatusAnalyzing        SessionStatus = "analyzing"
	SessionStatusIngredientsReady SessionStatus = "ingredients_ready"
	SessionStatusDone             SessionStatus = "done"
	SessionStatusError            SessionStatus = "error"
)

// RerunPolicy decides whether a finished session may be analyzed again.
type RerunPolicy string

const (
	RerunReject  RerunPolicy = "reject"
	RerunReplace RerunPolicy = "replace"
)

func ParseRerunPolicy(v string) RerunPolicy {
	if RerunPolicy(v) == RerunReplace {
		return RerunReplace
	}
	return RerunReject
}

var forwardTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusWaiting:          {SessionStatusUploaded, SessionStatusAnalyzing},
	SessionStatusUploaded:         {SessionStatusUploaded, SessionStatusAnalyzing},
	SessionStatusAnalyzing:        {SessionStatusIngredientsReady, SessionStatusError},
	SessionStatusIngredientsReady: {SessionStatusDone, SessionStatusError},
}

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusDone || s == SessionStatusError
}

func (s SessionStatus) IsInFlight() bool {
	return s == SessionStatusAnalyzing || s == SessionStatusIngredientsReady
}

// StartsNewRun reports whether moving from s to next leaves a finished run
// behind, in which case that run's results must be discarded.
func (s SessionStatus) StartsNewRun(next SessionStatus) bool {
	return s.IsTerminal() && !next.IsTerminal()
}

// CanTransitionTo reports whether next is a legal successor of s.
// Under RerunReplace a terminal session may restart into uploaded or analyzing.
func (s SessionStatus) CanTransitionTo(next SessionStatus, policy RerunPolicy) bool {
	if s.IsTerminal() && policy == RerunReplace {
		return next == SessionStatusUploaded || next == SessionStatusAnalyzing
	}
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
