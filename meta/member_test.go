package meta

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/meta-runtime/errors"
)

func TestPointSetGet(t *testing.T) {
	r := newTestRegistry(t)
	x := r.LookupByName("Point").FindMember("x")
	if x == nil {
		t.Fatal("member x not found")
	}

	p := Point{}
	inst := PointerTo(r, &p)
	five := ValueOf(r, 5)

	if !x.CanSet(&inst, &five) {
		t.Fatal("CanSet(x, 5) = false")
	}
	x.Set(&inst, &five)

	got := x.Get(&inst)
	if v := MustGetValue[int](&got); v != 5 {
		t.Errorf("x = %d, want 5", v)
	}
	if p.X != 5 {
		t.Errorf("p.X = %d, want 5", p.X)
	}
	if got.Qualifier() != QualPointer {
		t.Errorf("Get qualifier = %v, want pointer", got.Qualifier())
	}
	if MustGetPointer[int](&got) != &p.X {
		t.Error("Get should reference the field, not a copy")
	}
}

func TestMemberMetadata(t *testing.T) {
	r := newTestRegistry(t)
	pt := r.LookupByName("Point")

	x := pt.FindMember("x")
	y := pt.FindMember("y")
	if x.Owner() != pt || x.Name() != "x" || x.Type() != LookupByType[int](r) {
		t.Errorf("x = %s.%s %s", x.Owner(), x.Name(), x.Type())
	}
	if x.Offset() != 0 || y.Offset() != 8 {
		t.Errorf("offsets = %d, %d; want 0, 8", x.Offset(), y.Offset())
	}
	if x.TypeName() != "int" {
		t.Errorf("TypeName = %q", x.TypeName())
	}

	var names []string
	for _, m := range pt.Members() {
		names = append(names, m.Name())
	}
	if diff := cmp.Diff([]string{"x", "y"}, names); diff != "" {
		t.Errorf("Members mismatch (-want +got):\n%s", diff)
	}
}

func TestFindMember(t *testing.T) {
	r := newTestRegistry(t)
	circle := r.LookupByName("Circle")

	tests := []struct {
		name  string
		owner string
	}{
		{"radius", "Circle"},
		{"center", "Circle"},
		{"id", "Base"},
		{"name", "Named"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			first := circle.FindMember(tc.name)
			if first == nil {
				t.Fatalf("FindMember(%q) = nil", tc.name)
			}
			if first.Owner().Name() != tc.owner {
				t.Errorf("owner = %s, want %s", first.Owner(), tc.owner)
			}
			for i := 0; i < 3; i++ {
				if again := circle.FindMember(tc.name); again != first {
					t.Fatal("FindMember is not idempotent")
				}
			}
		})
	}

	if circle.FindMember("missing") != nil {
		t.Error("unknown member should be nil")
	}
	if circle.FindMember("x") != nil {
		t.Error("Point members must not leak into Circle")
	}

	var all []string
	for _, m := range circle.AllMembers() {
		all = append(all, m.Owner().Name()+"."+m.Name())
	}
	want := []string{"Base.id", "Named.name", "Circle.radius", "Circle.center"}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("AllMembers mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberThroughBase(t *testing.T) {
	r := newTestRegistry(t)

	d := Derived{Tag: 1, Base: Base{ID: 2}}
	inst := PointerTo(r, &d)
	id := r.LookupByName("Derived").FindMember("id")
	if id == nil || id.Owner().Name() != "Base" {
		t.Fatalf("id = %v", id)
	}

	got := id.Get(&inst)
	if v := MustGetValue[int32](&got); v != 2 {
		t.Errorf("id = %d, want 2", v)
	}

	seven := ValueOf(r, int32(7))
	id.Set(&inst, &seven)
	if d.ID != 7 {
		t.Errorf("d.ID = %d, want 7", d.ID)
	}

	c := Circle{Named: Named{Name: "unit"}}
	cinst := PointerTo(r, &c)
	name := r.LookupByName("Circle").FindMember("name")
	nv := name.Get(&cinst)
	if MustGetPointer[string](&nv) != &c.Name {
		t.Error("name should address the Named base inside Circle")
	}
}

func TestMemberOwnedInstance(t *testing.T) {
	r := newTestRegistry(t)

	inst := ValueOf(r, Point{X: 1, Y: 2})
	y := r.LookupByName("Point").FindMember("y")

	three := ValueOf(r, 3)
	if !y.CanSet(&inst, &three) {
		t.Fatal("owned instance should be settable")
	}
	y.Set(&inst, &three)
	if got := MustGetValue[Point](&inst); got.Y != 3 {
		t.Errorf("Y = %d, want 3", got.Y)
	}
}

func TestMemberPreconditions(t *testing.T) {
	r := newTestRegistry(t)
	x := r.LookupByName("Point").FindMember("x")

	p := Point{}
	inst := PointerTo(r, &p)
	constInst := ConstPointerTo(r, &p)
	u := Unrelated{}
	other := PointerTo(r, &u)
	var nilPoint *Point
	nilInst := PointerTo(r, nilPoint)
	var empty Value

	five := ValueOf(r, 5)
	wrong := ValueOf(r, int64(5))
	str := ValueOf(r, "5")
	constFive := ConstPointerTo(r, new(int))

	t.Run("can_get", func(t *testing.T) {
		if !x.CanGet(&inst) || !x.CanGet(&constInst) {
			t.Error("CanGet should accept Point instances")
		}
		for name, v := range map[string]*Value{"unrelated": &other, "nil": &nilInst, "empty": &empty} {
			if x.CanGet(v) {
				t.Errorf("CanGet(%s) = true", name)
			}
		}
		if x.CanGet(nil) {
			t.Error("CanGet(nil) = true")
		}
	})

	t.Run("can_set", func(t *testing.T) {
		if x.CanSet(&constInst, &five) {
			t.Error("CanSet through const instance")
		}
		if x.CanSet(&inst, &wrong) || x.CanSet(&inst, &str) {
			t.Error("CanSet with mismatched type")
		}
		if x.CanSet(&inst, &empty) || x.CanSet(&inst, nil) {
			t.Error("CanSet with empty value")
		}
		if !x.CanSet(&inst, &constFive) {
			t.Error("a read-only int may be copied into the field")
		}
	})

	t.Run("const_get", func(t *testing.T) {
		got := x.Get(&constInst)
		if got.Qualifier() != QualConstPointer {
			t.Errorf("qualifier = %v, want const pointer", got.Qualifier())
		}
	})

	t.Run("panics", func(t *testing.T) {
		expectPanic(t, errors.PhaseGet, errors.KindTypeMismatch, func() { x.Get(&other) })
		expectPanic(t, errors.PhaseGet, errors.KindNilPointer, func() { x.Get(&nilInst) })
		expectPanic(t, errors.PhaseSet, errors.KindConstViolation, func() { x.Set(&constInst, &five) })
		expectPanic(t, errors.PhaseSet, errors.KindTypeMismatch, func() { x.Set(&inst, &wrong) })
		expectPanic(t, errors.PhaseSet, errors.KindInvalidInput, func() { x.Set(&inst, &empty) })
	})

	if p.X != 0 {
		t.Errorf("failed operations modified the instance: X = %d", p.X)
	}
}

func TestPointerMember(t *testing.T) {
	r := newTestRegistry(t)
	center := r.LookupByName("Circle").FindMember("center")

	if center.Record().Qualifier != QualPointer || center.Type() != LookupByType[Point](r) {
		t.Fatalf("center record = %v", center.Record())
	}

	c := Circle{}
	inst := PointerTo(r, &c)

	got := center.Get(&inst)
	if !got.IsNil() {
		t.Error("unset pointer member should read as nil")
	}

	pt := Point{X: 1}
	ref := PointerTo(r, &pt)
	if !center.CanSet(&inst, &ref) {
		t.Fatal("CanSet with mutable reference = false")
	}
	center.Set(&inst, &ref)
	if c.Center != &pt {
		t.Error("pointer member not stored")
	}

	got = center.Get(&inst)
	if MustGetPointer[Point](&got) != &pt {
		t.Error("Get should return the stored pointer")
	}

	byValue := ValueOf(r, Point{})
	if center.CanSet(&inst, &byValue) {
		t.Error("pointer member must not accept an owned value")
	}
	constRef := ConstPointerTo(r, &pt)
	if center.CanSet(&inst, &constRef) {
		t.Error("pointer member must not accept a read-only reference")
	}
	var nilPoint *Point
	none := PointerTo(r, nilPoint)
	center.Set(&inst, &none)
	if c.Center != nil {
		t.Error("nil reference should clear the pointer member")
	}
}

func TestOwnerAdoptedOnce(t *testing.T) {
	r := newTestRegistry(t)
	x := r.LookupByName("Point").FindMember("x")

	expectPanic(t, errors.PhaseDefine, errors.KindDuplicate, func() {
		x.adopt(r.LookupByName("Base"))
	})
	if x.Owner().Name() != "Point" {
		t.Errorf("owner changed to %s", x.Owner())
	}
}
