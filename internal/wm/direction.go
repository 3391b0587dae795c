package wm

// Direction is a unit step through an ordered list of monitors or
// windows. Or in plain words: forward or backward.
type Direction int

var (
	Prev = Direction(-1)
	Next = Direction(+1)
)

// step moves i by d within [0, n), wrapping around at both ends.
func (d Direction) step(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i+int(d))%n + n) % n
}
