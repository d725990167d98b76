package txn

import (
	"bytes"
	"encoding/gob"
	"reflect"
)

// deepCopy clones value by round-tripping it through gob, per Design Note "Deep copy on
// get": a stored value must not leak a mutable alias to a caller that then mutates it
// without calling Set again. Values that cannot be gob-encoded (channels, funcs,
// unexported-only structs) are returned unmodified; callers storing such values are
// relying on them being immutable by contract instead, which the spec allows as a
// fallback.
func deepCopy(value any) any {
	if value == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return value
	}
	out := reflect.New(reflect.TypeOf(value))
	if err := gob.NewDecoder(&buf).Decode(out.Interface()); err != nil {
		return value
	}
	return out.Elem().Interface()
}
