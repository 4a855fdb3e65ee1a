package rules

// Rect is a screen rectangle using top-left origin and size.
type Rect struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

// Normalize returns a rectangle with non-negative width/height.
func Normalize(r Rect) Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Contains reports whether a point lies inside r. The top-left edge is
// inclusive and the bottom-right edge exclusive, matching screen pixels.
func Contains(r Rect, x, y int) bool {
	if r.W <= 0 || r.H <= 0 {
		return false
	}
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}
