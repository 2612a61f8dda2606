package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetPlanLatestWriteWins(t *testing.T) {
	s := NewSessionState()
	s.SetPlan("11", "biology plan")
	s.SetPlan("11", "algebra plan")

	assert.Equal(t, "algebra plan", s.Plans["11"])
	assert.Len(t, s.Plans, 1)
}

func TestPlanListSortedByWeek(t *testing.T) {
	s := NewSessionState()
	s.SetPlan("12", "b")
	s.SetPlan("07", "a")

	plans := s.PlanList()
	assert.Equal(t, []WeeklyPlan{{Week: "07", Text: "a"}, {Week: "12", Text: "b"}}, plans)
}

func TestClearKeepsPlans(t *testing.T) {
	s := NewSessionState()
	s.Append(RoleUser, "hello")
	s.Summary = "summary"
	s.Compacted = 1
	s.SetPlan("11", "plan")

	s.Clear()
	assert.Empty(t, s.History)
	assert.Empty(t, s.Summary)
	assert.Zero(t, s.Compacted)
	assert.Len(t, s.Plans, 1)
}
