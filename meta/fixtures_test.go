package meta

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/meta-runtime/errors"
)

type Point struct {
	X int
	Y int
}

func (p Point) Add(a, b int) int { return a + b }

func (p Point) Len2() int { return p.X*p.X + p.Y*p.Y }

func (p *Point) Scale(k int) { p.X *= k; p.Y *= k }

func (p *Point) Translate(d *Point) { p.X += d.X; p.Y += d.Y }

func MakePoint(x, y int) Point { return Point{X: x, Y: y} }

func SwapPoint(p *Point) { p.X, p.Y = p.Y, p.X }

func (p Point) Mid(o Point) Point { return Point{X: (p.X + o.X) / 2, Y: (p.Y + o.Y) / 2} }

type Base struct {
	ID int32
}

func (b Base) Ident() int32 { return b.ID }

func (b *Base) SetIdent(id int32) { b.ID = id }

type Derived struct {
	Tag int32
	Base
}

type Named struct {
	Name string
}

func (n Named) Greeting(prefix string) string { return prefix + ", " + n.Name }

type Circle struct {
	Base
	Named
	Radius float64
	Center *Point
}

type Unrelated struct {
	Z float32
}

type Big struct {
	A, B, C, D, E uint64
}

// newTestRegistry declares the fixture types and seals the registry.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry(DefaultOptions())
	Declare(r, "Point", func(b *Builder[Point]) {
		b.Member("x", func(p *Point) *int { return &p.X }).
			Member("y", "Y").
			Method("add", Point.Add).
			Method("len2", Point.Len2).
			Method("scale", (*Point).Scale).
			Method("translate", (*Point).Translate).
			Method("mid", Point.Mid).
			Function("make", MakePoint).
			Function("swap", SwapPoint)
	})
	Declare(r, "Base", func(b *Builder[Base]) {
		b.Member("id", "ID").
			Method("ident", Base.Ident).
			Method("setIdent", (*Base).SetIdent)
	})
	Declare(r, "Derived", func(b *Builder[Derived]) {
		b.Base("Base").
			Member("tag", "Tag")
	})
	Declare(r, "Named", func(b *Builder[Named]) {
		b.Member("name", "Name").
			Method("greeting", Named.Greeting)
	})
	Declare(r, "Circle", func(b *Builder[Circle]) {
		b.Base(func(c *Circle) *Base { return &c.Base }).
			Base(func(c *Circle) *Named { return &c.Named }).
			Member("radius", "Radius").
			Member("center", "Center")
	})
	Declare[Unrelated](r, "", func(b *Builder[Unrelated]) {
		b.Member("z", "Z")
	})
	Declare[Big](r, "", nil)

	if err := r.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return r
}

// expectPanic runs fn and checks it panics with an *errors.Error of the
// given phase and kind.
func expectPanic(t *testing.T, phase errors.Phase, kind errors.Kind, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with [%s] %s", phase, kind)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		if !stderrors.Is(err, &errors.Error{Phase: phase, Kind: kind}) {
			t.Fatalf("panic = %v, want [%s] %s", err, phase, kind)
		}
	}()
	fn()
}
