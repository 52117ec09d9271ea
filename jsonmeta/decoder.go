package jsonmeta

import (
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
	"go.uber.org/zap"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta"
)

// Options configures a Decoder.
type Options struct {
	// DisallowUnknownFields rejects object keys that name no member.
	DisallowUnknownFields bool
	// MaxDepth bounds object and array nesting. Zero means unlimited.
	MaxDepth int
}

// DefaultOptions returns the default decoder configuration.
func DefaultOptions() Options {
	return Options{MaxDepth: 64}
}

// Decoder fills registered objects from JSON. Safe for concurrent use once
// the registry is sealed.
type Decoder struct {
	reg  *meta.Registry
	opts Options
}

// NewDecoder creates a decoder over a sealed registry.
func NewDecoder(reg *meta.Registry, opts Options) *Decoder {
	return &Decoder{reg: reg, opts: opts}
}

// Decode reads one JSON object from r into obj, which must hold an
// instance of typeName or of a type derived from it.
func (d *Decoder) Decode(r io.Reader, typeName string, obj *meta.Value) error {
	t := d.reg.LookupByName(typeName)
	if t == nil {
		return errors.NotFound(errors.PhaseDecode, "type", typeName)
	}
	if err := d.checkTarget(t, obj); err != nil {
		return err
	}
	dec := jsontext.NewDecoder(r)
	return d.decodeValue(dec, t, obj, []string{t.Name()}, 0)
}

// DecodeEnvelope reads a document of the form {"TypeName": {...}} into obj.
// It returns the type named by the envelope.
func (d *Decoder) DecodeEnvelope(r io.Reader, obj *meta.Value) (*meta.Type, error) {
	dec := jsontext.NewDecoder(r)
	t, err := d.openEnvelope(dec)
	if err != nil {
		return nil, err
	}
	if err := d.checkTarget(t, obj); err != nil {
		return nil, err
	}
	if err := d.decodeValue(dec, t, obj, []string{t.Name()}, 1); err != nil {
		return nil, err
	}
	return t, d.closeEnvelope(dec)
}

// DecodeNew reads an envelope document and returns a new owned instance of
// the named type.
func (d *Decoder) DecodeNew(r io.Reader) (meta.Value, error) {
	dec := jsontext.NewDecoder(r)
	t, err := d.openEnvelope(dec)
	if err != nil {
		return meta.Value{}, err
	}
	obj := t.New()
	if err := d.decodeValue(dec, t, &obj, []string{t.Name()}, 1); err != nil {
		return meta.Value{}, err
	}
	if err := d.closeEnvelope(dec); err != nil {
		return meta.Value{}, err
	}
	return obj, nil
}

func (d *Decoder) openEnvelope(dec *jsontext.Decoder) (*meta.Type, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, syntaxError(nil, err)
	}
	if tok.Kind() != '{' {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "envelope must be a JSON object")
	}
	tok, err = dec.ReadToken()
	if err != nil {
		return nil, syntaxError(nil, err)
	}
	if tok.Kind() != '"' {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "envelope is empty")
	}
	name := tok.String()
	t := d.reg.LookupByName(name)
	if t == nil {
		return nil, errors.NotFound(errors.PhaseDecode, "type", name)
	}
	return t, nil
}

func (d *Decoder) closeEnvelope(dec *jsontext.Decoder) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return syntaxError(nil, err)
	}
	if tok.Kind() != '}' {
		return errors.InvalidData(errors.PhaseDecode, nil, "envelope must hold exactly one type")
	}
	return nil
}

func (d *Decoder) checkTarget(t *meta.Type, obj *meta.Value) error {
	if obj == nil || obj.IsNil() {
		return errors.NilPointer(errors.PhaseDecode, []string{t.Name()}, t.Name())
	}
	if obj.Qualifier() == meta.QualConstPointer {
		return errors.ConstViolation(errors.PhaseDecode, []string{t.Name()}, obj.Type().Name())
	}
	if !obj.Type().IsSameOrDerivedFrom(t) {
		return errors.TypeMismatch(errors.PhaseDecode, []string{t.Name()}, obj.Type().Name(), t.Name())
	}
	return nil
}

// decodeValue decodes the next JSON value into the storage referenced by target.
func (d *Decoder) decodeValue(dec *jsontext.Decoder, t *meta.Type, target *meta.Value, path []string, depth int) error {
	if d.opts.MaxDepth > 0 && depth > d.opts.MaxDepth {
		return errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("nesting exceeds %d levels", d.opts.MaxDepth))
	}

	switch dec.PeekKind() {
	case '{':
		if t.GoType().Kind() != reflect.Struct {
			return mismatch(path, "object", t)
		}
		return d.decodeObject(dec, t, target, path, depth)
	case '[':
		return d.decodeArray(dec, t, target, path, depth)
	}

	tok, err := dec.ReadToken()
	if err != nil {
		return syntaxError(path, err)
	}
	rv := target.Reflect()

	switch tok.Kind() {
	case 'n':
		rv.SetZero()
		return nil
	case '"':
		if rv.Kind() != reflect.String {
			return mismatch(path, "string", t)
		}
		rv.SetString(tok.String())
		return nil
	case 't', 'f':
		if rv.Kind() != reflect.Bool {
			return mismatch(path, "boolean", t)
		}
		rv.SetBool(tok.Bool())
		return nil
	case '0':
		lit := tok.String()
		ok, err := setNumber(rv, lit)
		if !ok {
			return mismatch(path, "number", t)
		}
		if stderrors.Is(err, strconv.ErrRange) {
			return errors.Overflow(errors.PhaseDecode, path, lit, t.Name())
		}
		if err != nil {
			return errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Path(path...).
				MetaType(t.Name()).
				Value(lit).
				Cause(err).
				Detail("cannot convert number %s", lit).
				Build()
		}
		return nil
	default:
		return errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("unexpected token %s", tok.Kind()))
	}
}

func (d *Decoder) decodeObject(dec *jsontext.Decoder, t *meta.Type, inst *meta.Value, path []string, depth int) error {
	if _, err := dec.ReadToken(); err != nil {
		return syntaxError(path, err)
	}

	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return syntaxError(path, err)
		}
		key := tok.String()
		memberPath := append(path[:len(path):len(path)], key)

		m := t.FindMember(key)
		if m == nil {
			if d.opts.DisallowUnknownFields {
				return errors.FieldUnknown(errors.PhaseDecode, path, key)
			}
			Logger().Debug("skipping unknown member",
				zap.String("type", t.Name()),
				zap.String("member", key))
			if err := dec.SkipValue(); err != nil {
				return syntaxError(memberPath, err)
			}
			continue
		}
		if err := d.decodeMember(dec, m, inst, memberPath, depth+1); err != nil {
			return err
		}
	}

	if _, err := dec.ReadToken(); err != nil {
		return syntaxError(path, err)
	}
	return nil
}

func (d *Decoder) decodeMember(dec *jsontext.Decoder, m *meta.Member, inst *meta.Value, path []string, depth int) error {
	mt := m.Type()

	if m.Record().Qualifier == meta.QualPointer {
		ref := mt.Nil()
		if dec.PeekKind() == 'n' {
			if _, err := dec.ReadToken(); err != nil {
				return syntaxError(path, err)
			}
		} else {
			ref = mt.Alloc()
			if err := d.decodeValue(dec, mt, &ref, path, depth); err != nil {
				return err
			}
		}
		return set(m, inst, &ref, path)
	}

	if dec.PeekKind() == '{' {
		// Nested objects are filled in place through a reference to the field.
		field := m.Get(inst)
		nested := d.reg.LookupByName(mt.Name())
		if nested == nil {
			return errors.NotFound(errors.PhaseDecode, "type", mt.Name())
		}
		return d.decodeValue(dec, nested, &field, path, depth)
	}

	v := mt.New()
	if err := d.decodeValue(dec, mt, &v, path, depth); err != nil {
		return err
	}
	return set(m, inst, &v, path)
}

func (d *Decoder) decodeArray(dec *jsontext.Decoder, t *meta.Type, target *meta.Value, path []string, depth int) error {
	rv := target.Reflect()
	kind := rv.Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return mismatch(path, "array", t)
	}
	et := d.reg.LookupByGoType(rv.Type().Elem())
	if et == nil {
		return errors.New(errors.PhaseDecode, errors.KindNotFound).
			Path(path...).
			GoType(rv.Type().Elem().String()).
			Detail("element type of %s is not registered", t.Name()).
			Build()
	}

	if _, err := dec.ReadToken(); err != nil {
		return syntaxError(path, err)
	}

	out := rv
	if kind == reflect.Slice {
		out = reflect.MakeSlice(rv.Type(), 0, 0)
	} else {
		rv.SetZero()
	}

	for i := 0; dec.PeekKind() != ']'; i++ {
		elemPath := append(path[:len(path):len(path)], strconv.Itoa(i))
		elem := et.New()
		if err := d.decodeValue(dec, et, &elem, elemPath, depth+1); err != nil {
			return err
		}
		if kind == reflect.Slice {
			out = reflect.Append(out, elem.Reflect())
			continue
		}
		if i >= rv.Len() {
			return errors.InvalidData(errors.PhaseDecode, path, fmt.Sprintf("more than %d elements", rv.Len()))
		}
		rv.Index(i).Set(elem.Reflect())
	}

	if _, err := dec.ReadToken(); err != nil {
		return syntaxError(path, err)
	}
	if kind == reflect.Slice {
		rv.Set(out)
	}
	return nil
}

func set(m *meta.Member, inst, v *meta.Value, path []string) error {
	if !m.CanSet(inst, v) {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(path...).
			MetaType(m.TypeName()).
			Detail("member %s cannot be assigned", m.Name()).
			Build()
	}
	m.Set(inst, v)
	return nil
}

func mismatch(path []string, jsonKind string, t *meta.Type) *errors.Error {
	return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
		Path(path...).
		MetaType(t.Name()).
		Detail("cannot decode JSON %s", jsonKind).
		Build()
}

func syntaxError(path []string, err error) *errors.Error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &errors.Error{
		Phase:  errors.PhaseDecode,
		Kind:   errors.KindInvalidData,
		Path:   path,
		Detail: "malformed JSON",
		Cause:  err,
	}
}
