// Package export writes graphs to interchange formats.
//
// Interchange formats only carry scalar attributes, so node attributes pass
// through FlattenAttrs first: structured values become JSON text, absent values
// become the empty string, and numbers are widened to int64 or float64.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// FlattenAttrs returns a copy of attrs with every value flattened.
func FlattenAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = FlattenValue(v)
	}
	return out
}

// FlattenValue maps v to a string, int64 or float64.
func FlattenValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return flattenUnsigned(uint64(x))
	case uint64:
		return flattenUnsigned(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return FlattenValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return ""
		}
		return toJSON(v)
	case reflect.Array, reflect.Struct:
		return toJSON(v)
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(v)
}

func flattenUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return strconv.FormatUint(u, 10)
	}
	return int64(u)
}

// toJSON encodes v without HTML escaping, so titles such as "Pride & Prejudice"
// keep their ampersand.
func toJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
