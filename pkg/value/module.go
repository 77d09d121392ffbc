package value

import "fmt"

// MaxIdentifierLength bounds module-variable names (DefineVar enforces it),
// per the data model's MAX_ID_LEN.
const MaxIdentifierLength = 64

// Module is the per-module ordered mapping from variable name to value
// slot. Name and value vectors are parallel and equal in length by
// construction (invariant in §3).
type Module struct {
	H         Header
	Name      *String // nullable; nil for the core module
	VarNames  []string
	VarValues []Value
}

func (m *Module) Header() *Header { return &m.H }

// IndexOf returns the slot index of name, or -1 if undeclared.
func (m *Module) IndexOf(name string) int {
	for i, n := range m.VarNames {
		if n == name {
			return i
		}
	}
	return -1
}

// DefineVar implements defineModuleVar from §4.2:
//
//   - unknown name: append name and value, return the new index.
//   - known name whose current slot holds a Number (the "used before
//     defined" forward-reference marker): overwrite with the real value,
//     return that index — this is a definition arriving after use.
//   - known name already holding a real definition: return -1 (duplicate
//     definition).
//
// Returns an error only when name exceeds MaxIdentifierLength.
func (m *Module) DefineVar(name string, v Value) (int, error) {
	if len(name) > MaxIdentifierLength {
		return -1, fmt.Errorf("module variable name %q exceeds maximum identifier length", name)
	}
	if idx := m.IndexOf(name); idx != -1 {
		if m.VarValues[idx].Kind == KindNumber {
			m.VarValues[idx] = v
			return idx, nil
		}
		return -1, nil
	}
	m.VarNames = append(m.VarNames, name)
	m.VarValues = append(m.VarValues, v)
	return len(m.VarNames) - 1, nil
}

// DeclareVar is the raw-append form used to reserve a symbol slot ahead of
// time (the compiler uses it for a name referenced before its definition,
// storing the forward-reference Number marker), skipping the
// duplicate-definition check.
func (m *Module) DeclareVar(name string, v Value) int {
	m.VarNames = append(m.VarNames, name)
	m.VarValues = append(m.VarValues, v)
	return len(m.VarNames) - 1
}

// ForwardRef names one module variable still holding the Number-tagged
// forward-reference sentinel at end-of-module compilation: it was used
// (at Line) but never defined.
type ForwardRef struct {
	Name string
	Line int
}

// UndefinedForwardRefs returns every forward reference still unresolved at
// end-of-module compilation, each carrying the source line of its first
// use (the line the Number sentinel was stamped with) so the compiler can
// report "identifier %s used but not defined" at the right place, per
// spec.md S3. Property 1 requires this list be empty after a successful
// compile.
func (m *Module) UndefinedForwardRefs() []ForwardRef {
	var refs []ForwardRef
	for i, v := range m.VarValues {
		if v.Kind == KindNumber {
			refs = append(refs, ForwardRef{Name: m.VarNames[i], Line: int(v.AsNumber())})
		}
	}
	return refs
}
