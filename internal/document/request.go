package document

import "fmt"

// Placement defaults applied when a sign request omits them.
const (
	DefaultWidth  = 200.0
	DefaultHeight = 100.0
	DefaultPage   = 0
)

// SignRequest asks for Signature to be drawn on page Page (zero-based) of
// Filename inside the box whose top-left corner is (X, Y).
type SignRequest struct {
	Filename  string
	Signature []byte
	X         float64
	Y         float64
	Width     float64
	Height    float64
	Page      int
}

// Rect is a rectangle in page space with a top-left origin, y growing down.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", r.X0, r.Y0, r.X1, r.Y1)
}

// Rect returns the placement rectangle (x, y, x+width, y+height). It is not
// checked against the page bounds.
func (r SignRequest) Rect() Rect {
	return Rect{X0: r.X, Y0: r.Y, X1: r.X + r.Width, Y1: r.Y + r.Height}
}
