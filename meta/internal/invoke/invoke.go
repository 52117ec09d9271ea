// Package invoke calls Go functions through raw argument pointers.
//
// A Func is prepared once from a function value; each Call builds the
// reflect argument list from unsafe pointers (one per parameter, receiver
// first) and returns the single result, if any.
package invoke

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Func is a prepared function. Safe for concurrent use.
type Func struct {
	argsPool sync.Pool
	fn       reflect.Value
	in       []reflect.Type
	byRef    []bool
	out      reflect.Type
}

// New prepares fn. Every parameter is either a value type T or a pointer *T;
// at most one result is allowed and variadic functions are rejected.
func New(fn any) (*Func, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a function, got %T", fn)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("nil function")
	}

	ft := v.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("variadic function %s is not supported", ft)
	}
	if ft.NumOut() > 1 {
		return nil, fmt.Errorf("function %s returns %d results, at most one is supported", ft, ft.NumOut())
	}

	numIn := ft.NumIn()
	f := &Func{
		fn:    v,
		in:    make([]reflect.Type, numIn),
		byRef: make([]bool, numIn),
		argsPool: sync.Pool{
			New: func() any {
				s := make([]reflect.Value, numIn)
				return &s
			},
		},
	}
	for i := 0; i < numIn; i++ {
		t := ft.In(i)
		if t.Kind() == reflect.Pointer {
			f.in[i] = t.Elem()
			f.byRef[i] = true
			continue
		}
		f.in[i] = t
	}
	if ft.NumOut() == 1 {
		f.out = ft.Out(0)
	}
	return f, nil
}

// NumIn returns the parameter count, receiver included.
func (f *Func) NumIn() int {
	return len(f.in)
}

// In returns the pointee type of parameter i and whether it is passed by pointer.
func (f *Func) In(i int) (reflect.Type, bool) {
	return f.in[i], f.byRef[i]
}

// Out returns the result type, or nil when the function returns nothing.
func (f *Func) Out() reflect.Type {
	return f.out
}

// Call invokes the function. ptrs[i] addresses the storage of parameter i's
// pointee type; by-value parameters are copied out of it. Arguments are
// built and passed in declaration order.
func (f *Func) Call(ptrs []unsafe.Pointer) (reflect.Value, bool) {
	if len(ptrs) != len(f.in) {
		panic(fmt.Sprintf("invoke: got %d arguments, want %d", len(ptrs), len(f.in)))
	}

	argsPtr := f.argsPool.Get().(*[]reflect.Value)
	args := *argsPtr
	defer func() {
		var zero reflect.Value
		for i := range args {
			args[i] = zero
		}
		f.argsPool.Put(argsPtr)
	}()

	for i, p := range ptrs {
		if f.byRef[i] {
			args[i] = reflect.NewAt(f.in[i], p)
			continue
		}
		args[i] = reflect.NewAt(f.in[i], p).Elem()
	}

	results := f.fn.Call(args)
	if len(results) == 0 {
		return reflect.Value{}, false
	}
	return results[0], true
}
