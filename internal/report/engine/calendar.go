package engine

import "time"

const monthLabelLayout = "Jan-2006"

// month indexes calendar months so that consecutive months differ by one.
type month int

func monthOf(t time.Time) month {
	t = t.UTC()
	return month(t.Year()*12 + int(t.Month()) - 1)
}

func (m month) start() time.Time {
	return time.Date(int(m)/12, time.Month(int(m)%12+1), 1, 0, 0, 0, 0, time.UTC)
}

func (m month) end() time.Time {
	return (m + 1).start()
}

func (m month) days() int {
	return daysBetween(m.start(), m.end())
}

func (m month) label() string {
	return m.start().Format(monthLabelLayout)
}

// monthSpan tracks the earliest and latest month observed.
type monthSpan struct {
	first, last month
	ok          bool
}

func (s *monthSpan) observe(m month) {
	if !s.ok {
		s.first, s.last, s.ok = m, m, true
		return
	}
	if m < s.first {
		s.first = m
	}
	if m > s.last {
		s.last = m
	}
}

// months returns every month of the span, inclusive, in chronological order.
func (s monthSpan) months() []month {
	if !s.ok {
		return nil
	}
	out := make([]month, 0, int(s.last-s.first)+1)
	for m := s.first; m <= s.last; m++ {
		out = append(out, m)
	}
	return out
}
