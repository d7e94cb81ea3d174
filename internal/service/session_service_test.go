package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgac-unsa/sgac-api/internal/models"
)

func semesterFixture() *models.Semester {
	// 2024-08-08 is a Thursday
	return &models.Semester{
		ID:        "sem-1",
		Name:      "2024-II",
		StartDate: time.Date(2024, 8, 8, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 13, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateTheorySessionsNumbering(t *testing.T) {
	semester := semesterFixture()
	sessions := GenerateTheorySessions(semester, []models.DayOfWeek{models.Monday, models.Wednesday})

	require.NotEmpty(t, sessions)
	// first Monday after 2024-08-08 is 2024-08-12, but Wednesday 2024-08-14
	// comes after it, so session 1 is the Monday
	assert.Equal(t, 1, sessions[0].Number)
	assert.Equal(t, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), sessions[0].Date)
	assert.Equal(t, models.Monday, sessions[0].Day)
	assert.Equal(t, time.Date(2024, 8, 14, 0, 0, 0, 0, time.UTC), sessions[1].Date)

	for i, session := range sessions {
		assert.Equal(t, i+1, session.Number, "sessions are numbered in date order")
		assert.False(t, session.Date.After(semester.EndDate))
	}
}

func TestGenerateTheorySessionsDeterministic(t *testing.T) {
	semester := semesterFixture()
	days := []models.DayOfWeek{models.Tuesday, models.Friday}

	first := GenerateTheorySessions(semester, days)
	second := GenerateTheorySessions(semester, days)
	assert.Equal(t, first, second)
}

func TestGenerateTheorySessionsNoDays(t *testing.T) {
	assert.Empty(t, GenerateTheorySessions(semesterFixture(), nil))
}

func TestGenerateLabSessionsStartOneWeekIn(t *testing.T) {
	semester := semesterFixture()
	// labs start 2024-08-15 (Thursday); first Thursday session is that day
	sessions := GenerateLabSessions(semester, []models.DayOfWeek{models.Thursday}, 7)

	require.NotEmpty(t, sessions)
	assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), sessions[0].Date)
	assert.Equal(t, 1, sessions[0].Number)

	// weekly cadence
	for i := 1; i < len(sessions); i++ {
		assert.Equal(t, 7*24*time.Hour, sessions[i].Date.Sub(sessions[i-1].Date))
	}
	last := sessions[len(sessions)-1]
	assert.False(t, last.Date.After(semester.EndDate))
}

func TestGenerateLabSessionsAnchorAfterOffset(t *testing.T) {
	semester := semesterFixture()
	// labs start Thursday 2024-08-15; the first Monday on or after that is
	// 2024-08-19, not 2024-08-12
	sessions := GenerateLabSessions(semester, []models.DayOfWeek{models.Monday}, 7)

	require.NotEmpty(t, sessions)
	assert.Equal(t, time.Date(2024, 8, 19, 0, 0, 0, 0, time.UTC), sessions[0].Date)
}

func TestGenerateLabSessionsTwoDaysInterleaved(t *testing.T) {
	semester := semesterFixture()
	sessions := GenerateLabSessions(semester, []models.DayOfWeek{models.Monday, models.Thursday}, 7)

	require.True(t, len(sessions) > 2)
	for i, session := range sessions {
		assert.Equal(t, i+1, session.Number)
		if i > 0 {
			assert.True(t, sessions[i-1].Date.Before(session.Date), "chronological order")
		}
	}
}

func TestSessionDescriptorAnnotate(t *testing.T) {
	today := time.Date(2024, 9, 2, 15, 30, 0, 0, time.UTC)

	past := models.SessionDescriptor{Date: time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC)}
	past.Annotate(today)
	assert.True(t, past.IsPast)
	assert.False(t, past.IsToday)

	current := models.SessionDescriptor{Date: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)}
	current.Annotate(today)
	assert.True(t, current.IsToday)
	assert.False(t, current.IsPast)
	assert.False(t, current.IsFuture)

	future := models.SessionDescriptor{Date: time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC)}
	future.Annotate(today)
	assert.True(t, future.IsFuture)
}
