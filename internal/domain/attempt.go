package domain

import "time"

// Attempt is a quiz session as the devserver tracks it. Order holds indexes
// into the course's question list in the sequence they will be served.
type Attempt struct {
	ID        string
	User      string
	Course    string
	Mode      OrderMode
	Order     []int
	Cursor    int
	Pending   *int
	Score     int
	Total     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats returns the running score. ErrorRate is a percentage of wrong answers.
func (a Attempt) Stats() Stats {
	s := Stats{Score: a.Score, Total: a.Total}
	if a.Total > 0 {
		s.ErrorRate = float64(a.Total-a.Score) / float64(a.Total) * 100
	}
	return s
}

// Clone returns a deep copy so stores never share slices with callers.
func (a Attempt) Clone() Attempt {
	out := a
	out.Order = append([]int(nil), a.Order...)
	if a.Pending != nil {
		p := *a.Pending
		out.Pending = &p
	}
	return out
}
