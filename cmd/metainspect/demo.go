package main

import (
	"fmt"
	"math"

	"github.com/wippyai/meta-runtime/meta"
)

const sampleDocument = `{
  "Thing": {
    "size": 3,
    "name": "crate",
    "radius": 1.5,
    "height": 2.25,
    "position": {"x": 1, "y": 2, "z": 3}
  }
}`

type Vector3 struct {
	X, Y, Z float32
}

func (v Vector3) Length() float64 {
	return math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
}

func (v Vector3) Dot(o Vector3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v *Vector3) Scale(f float32) {
	v.X *= f
	v.Y *= f
	v.Z *= f
}

type Thing struct {
	Name     string
	Position Vector3
	Height   float64
	Size     int32
	Radius   float32
}

func (t Thing) Volume() float64 {
	return math.Pi * float64(t.Radius*t.Radius) * t.Height
}

func (t *Thing) Grow(n int32) {
	t.Size += n
}

func (t Thing) Describe() string {
	return fmt.Sprintf("%s (size %d)", t.Name, t.Size)
}

func (t *Thing) MoveTo(p *Vector3) {
	t.Position = *p
}

// FitsIn reports whether the size is within limit, exclusive when strict.
func (t Thing) FitsIn(limit uint32, strict bool) bool {
	if t.Size < 0 {
		return true
	}
	if strict {
		return uint32(t.Size) < limit
	}
	return uint32(t.Size) <= limit
}

func cylinderVolume(radius, height float64) float64 {
	return math.Pi * radius * radius * height
}

type Shape struct {
	Label string
	ID    int32
}

func (s Shape) Ident() int32 { return s.ID }

func (s *Shape) Rename(label string) { s.Label = label }

type Circle struct {
	Shape
	Center *Vector3
	Radius float64
}

func (c Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

func (c *Circle) Resize(r float64) { c.Radius = r }

// newDemoRegistry declares and seals the demo types.
func newDemoRegistry() (*meta.Registry, error) {
	r := meta.NewRegistry(meta.DefaultOptions())

	meta.Declare(r, "Vector3", func(b *meta.Builder[Vector3]) {
		b.Member("x", "X").
			Member("y", "Y").
			Member("z", "Z").
			Method("length", Vector3.Length).
			Method("dot", Vector3.Dot).
			Method("scale", (*Vector3).Scale)
	})
	meta.Declare(r, "Thing", func(b *meta.Builder[Thing]) {
		b.Member("size", "Size").
			Member("name", "Name").
			Member("radius", "Radius").
			Member("height", "Height").
			Member("position", "Position").
			Method("volume", Thing.Volume).
			Method("grow", (*Thing).Grow).
			Method("describe", Thing.Describe).
			Method("moveTo", (*Thing).MoveTo).
			Method("fitsIn", Thing.FitsIn).
			Function("cylinderVolume", cylinderVolume)
	})
	meta.Declare(r, "Shape", func(b *meta.Builder[Shape]) {
		b.Member("id", "ID").
			Member("label", "Label").
			Method("ident", Shape.Ident).
			Method("rename", (*Shape).Rename)
	})
	meta.Declare(r, "Circle", func(b *meta.Builder[Circle]) {
		b.Base("Shape").
			Member("radius", "Radius").
			Member("center", "Center").
			Method("area", Circle.Area).
			Method("resize", (*Circle).Resize)
	})

	if err := r.Seal(); err != nil {
		return nil, err
	}
	return r, nil
}
