package xsync

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"
)

// Atomic is a memory cell holding a value of at most 8 bytes that can be
// loaded, swapped and compared-and-swapped atomically.
//
// All operations are sequentially consistent: no load or store of the
// surrounding code is reordered across them.
//
// T must be a plain value: no pointers, no padding, at most 8 bytes.
// NewAtomic checks this. The zero Atomic holds the zero T and checks T on
// first use, so every operation on a zero Atomic of a bad T panics.
type Atomic[T any] struct {
	_     noCopy
	bits  atomic.Uint64
	valid atomic.Bool
}

// NewAtomic creates a cell holding initial.
// Panics if T is not a pointer-free, padding-free type of at most 8 bytes.
func NewAtomic[T any](initial T) *Atomic[T] {
	mustWord[T]()

	a := &Atomic[T]{}
	a.valid.Store(true)
	a.bits.Store(toBits(initial))
	return a
}

// Load returns the current value.
func (a *Atomic[T]) Load() T {
	a.check()
	return fromBits[T](a.bits.Load())
}

// Swap stores v and returns the previous value.
func (a *Atomic[T]) Swap(v T) T {
	a.check()
	return fromBits[T](a.bits.Swap(toBits(v)))
}

// CompareAndSwap replaces the value with v if it is bitwise equal to expected.
// Reports whether the replacement happened.
func (a *Atomic[T]) CompareAndSwap(expected, v T) bool {
	a.check()
	return a.bits.CompareAndSwap(toBits(expected), toBits(v))
}

// Update replaces the value with fn(current) and returns the value fn was
// applied to. fn may be called several times under contention.
func (a *Atomic[T]) Update(fn func(T) T) T {
	a.check()
	for {
		old := a.bits.Load()
		if a.bits.CompareAndSwap(old, toBits(fn(fromBits[T](old)))) {
			return fromBits[T](old)
		}
	}
}

// check validates T the first time a zero Atomic is used.
func (a *Atomic[T]) check() {
	if a.valid.Load() {
		return
	}
	mustWord[T]()
	a.valid.Store(true)
}

func mustWord[T any]() {
	if err := checkWord(reflect.TypeFor[T]()); err != nil {
		panic(err.Error())
	}
}

// toBits and fromBits must only see types accepted by checkWord.
func toBits[T any](v T) uint64 {
	if unsafe.Sizeof(v) > 8 {
		panic("xsync: value does not fit in a machine word")
	}
	var b uint64
	*(*T)(unsafe.Pointer(&b)) = v
	return b
}

func fromBits[T any](b uint64) T {
	var zero T
	if unsafe.Sizeof(zero) > 8 {
		panic("xsync: value does not fit in a machine word")
	}
	return *(*T)(unsafe.Pointer(&b))
}

// checkWord reports why t cannot live in a single machine word.
func checkWord(t reflect.Type) error {
	if t.Size() > 8 {
		return fmt.Errorf("xsync: %s is %d bytes, atomic cells hold at most 8", t, t.Size())
	}
	if !plain(t) {
		return fmt.Errorf("xsync: %s holds pointers or padding and cannot be stored atomically", t)
	}
	return nil
}

func plain(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64:
		return true
	case reflect.Array:
		return plain(t.Elem())
	case reflect.Struct:
		var size uintptr
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !plain(f.Type) {
				return false
			}
			size += f.Type.Size()
		}
		return size == t.Size()
	default:
		return false
	}
}

// noCopy may be embedded into structs which must not be copied
// after the first use. See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
