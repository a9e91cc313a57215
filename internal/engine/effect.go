package engine

// Effect is an ordered container of segments.
type Effect struct {
	ID       int
	Segments []*Segment
}
