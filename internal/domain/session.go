package domain

import "sort"

// WeeklyPlan pairs a stored plan text with its week identifier.
type WeeklyPlan struct {
	Week string
	Text string
}

// SessionState is the per-session aggregate: conversation history,
// the derived conversational memory (running summary plus a verbatim
// window over the tail of history), and the week-keyed plan mapping.
// One instance per session; created fresh at session start.
type SessionState struct {
	History []Turn
	// Summary is the running compaction of turns older than the
	// verbatim memory window. Compacted counts how many leading
	// turns of History the summary already covers.
	Summary   string
	Compacted int
	Plans     map[string]string
}

// NewSessionState returns an empty session.
func NewSessionState() *SessionState {
	return &SessionState{Plans: make(map[string]string)}
}

// Append adds a turn to the conversation history.
func (s *SessionState) Append(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
}

// SetPlan stores a weekly plan under its week identifier.
// The latest write for a given week wins.
func (s *SessionState) SetPlan(week, text string) {
	if s.Plans == nil {
		s.Plans = make(map[string]string)
	}
	s.Plans[week] = text
}

// PlanList returns the stored plans sorted by week identifier.
func (s *SessionState) PlanList() []WeeklyPlan {
	plans := make([]WeeklyPlan, 0, len(s.Plans))
	for week, text := range s.Plans {
		plans = append(plans, WeeklyPlan{Week: week, Text: text})
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Week < plans[j].Week })
	return plans
}

// Clear empties history and conversational memory together.
// The two must never diverge, so this is the only reset path.
// Weekly plans survive a history clear, matching the UI contract
// where the plan listing is a separate pane.
func (s *SessionState) Clear() {
	s.History = nil
	s.Summary = ""
	s.Compacted = 0
}
