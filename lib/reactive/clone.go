package reactive

import "reflect"

// Clone copies slices and maps. With deep set, nested slices and maps are
// copied recursively; otherwise only the outer container is copied. All other
// values are returned as is.
func Clone(v any, deep bool) any {
	if v == nil {
		return nil
	}
	out := cloneValue(reflect.ValueOf(v), deep)
	if !out.IsValid() {
		return v
	}
	return out.Interface()
}

func cloneValue(rv reflect.Value, deep bool) reflect.Value {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		if !deep {
			reflect.Copy(cp, rv)
			return cp
		}
		for i := 0; i < rv.Len(); i++ {
			cp.Index(i).Set(cloneElem(rv.Index(i)))
		}
		return cp

	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			val := iter.Value()
			if deep {
				val = cloneElem(val)
			}
			cp.SetMapIndex(iter.Key(), val)
		}
		return cp
	}
	return rv
}

// cloneElem clones a container element, unwrapping interface values so that
// []any and map[string]any trees are copied all the way down.
func cloneElem(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		inner := cloneValue(v.Elem(), true)
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	}
	return cloneValue(v, true)
}

// Identical reports whether a and b are the same value: equal for comparable
// values, the same backing storage for maps, slices, pointers, funcs and
// channels.
func Identical(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() {
		return ra.IsValid() == rb.IsValid()
	}
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if ra.Comparable() && rb.Comparable() {
		return ra.Equal(rb)
	}
	return false
}
