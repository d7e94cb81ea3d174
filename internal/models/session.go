package models

import "time"

// SessionDescriptor is one dictated session of a group, derived from the
// group's weekly schedules and the semester calendar. Sessions are numbered
// 1-based in chronological order.
type SessionDescriptor struct {
	Number   int       `json:"number"`
	Date     time.Time `json:"date"`
	Day      DayOfWeek `json:"day"`
	IsPast   bool      `json:"isPast"`
	IsToday  bool      `json:"isToday"`
	IsFuture bool      `json:"isFuture"`
}

// Annotate fills the temporal flags relative to the given "today".
func (s *SessionDescriptor) Annotate(today time.Time) {
	d := DateOnly(s.Date)
	t := DateOnly(today)
	s.IsPast = d.Before(t)
	s.IsToday = d.Equal(t)
	s.IsFuture = d.After(t)
}
