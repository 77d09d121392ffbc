package value

import "hash/fnv"

// ObjKind enumerates every heap object kind, per the data model's closed set.
type ObjKind uint8

const (
	ObjClassKind ObjKind = iota
	ObjListKind
	ObjMapKind
	ObjModuleKind
	ObjRangeKind
	ObjStringKind
	ObjUpvalueKind
	ObjFnKind
	ObjClosureKind
	ObjInstanceKind
	ObjThreadKind
)

func (k ObjKind) String() string {
	switch k {
	case ObjClassKind:
		return "Class"
	case ObjListKind:
		return "List"
	case ObjMapKind:
		return "Map"
	case ObjModuleKind:
		return "Module"
	case ObjRangeKind:
		return "Range"
	case ObjStringKind:
		return "String"
	case ObjUpvalueKind:
		return "Upvalue"
	case ObjFnKind:
		return "Fn"
	case ObjClosureKind:
		return "Closure"
	case ObjInstanceKind:
		return "Instance"
	case ObjThreadKind:
		return "Thread"
	default:
		return "Unknown"
	}
}

// Header is the common prefix every heap object carries: its kind, its
// class pointer (nullable only for the bootstrap Class object, before
// Class.Class = Class is wired up), a reachability mark reserved for a
// future collector, and the intrusive next-pointer in the process-wide
// all-objects list.
type Header struct {
	Kind  ObjKind
	Mark  bool
	Class *Class
	Next  Obj
}

// Obj is implemented by every heap-allocated object kind.
type Obj interface {
	Header() *Header
}

// String is an immutable byte string with a precomputed FNV-1a hash. The
// teacher's stack-based VM already treats the receiver of most "message
// sends" as an opaque interface{}; here a real String object is the one
// place FNV hashing lives, per the testable FNV-1a determinism property.
type String struct {
	H     Header
	Bytes []byte
	Hash  uint32
}

func (s *String) Header() *Header { return &s.H }

// HashBytes computes the FNV-1a hash used for both String objects and Map
// key hashing. Determinism and position-independence (property 7) fall out
// of FNV-1a being a pure function of the byte content.
func HashBytes(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// Range is an immutable pair of integers (from, to). Values are kept as
// float64 for uniformity with Number, but are expected to hold integral
// values; the compiler and primitives are responsible for that invariant.
type Range struct {
	H    Header
	From float64
	To   float64
}

func (r *Range) Header() *Header { return &r.H }
