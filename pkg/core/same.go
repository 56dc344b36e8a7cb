package core

import "reflect"

// Same reports whether a and b are the same value by identity.
//
// Maps, pointers, channels and funcs compare by address; slices by backing
// array and length. Other comparable values compare with ==. Values that are
// not comparable (e.g. structs holding maps) are never the same.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if !va.Comparable() {
		return false
	}
	return va.Equal(vb)
}
