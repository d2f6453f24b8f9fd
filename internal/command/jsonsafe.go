package command

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

// ErrUnsafePayload marks a command payload that cannot round-trip through
// JSON without loss. Serialization fails loudly on it rather than silently
// corrupting the persisted log.
var ErrUnsafePayload = errors.New("payload is not JSON-safe")

// UnsafePayloadError reports where in the payload tree the violation sits.
type UnsafePayloadError struct {
	Path   string
	Reason string
}

func (e *UnsafePayloadError) Error() string {
	return fmt.Sprintf("payload is not JSON-safe at %s: %s", e.Path, e.Reason)
}

func (e *UnsafePayloadError) Is(target error) bool {
	return target == ErrUnsafePayload
}

var timeType = reflect.TypeOf(time.Time{})

// CheckJSONSafe verifies that v holds only JSON primitives, string-keyed
// maps, slices and plain structs. Timestamps, binary buffers, channels,
// funcs and non-finite floats are rejected.
func CheckJSONSafe(v any) error {
	return checkValue(reflect.ValueOf(v), "$")
}

func checkValue(v reflect.Value, path string) error {
	if !v.IsValid() {
		return nil // JSON null
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &UnsafePayloadError{Path: path, Reason: "non-finite float"}
		}
		return nil
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkValue(v.Elem(), path)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return &UnsafePayloadError{Path: path, Reason: "binary buffer"}
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return &UnsafePayloadError{Path: path, Reason: "map with non-string keys"}
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := checkValue(iter.Value(), fmt.Sprintf("%s.%s", path, iter.Key().String())); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		if v.Type() == timeType {
			return &UnsafePayloadError{Path: path, Reason: "time.Time value"}
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := checkValue(v.Field(i), path+"."+t.Field(i).Name); err != nil {
				return err
			}
		}
		return nil
	default:
		// chan, func, complex, uintptr, unsafe.Pointer
		return &UnsafePayloadError{Path: path, Reason: v.Kind().String() + " value"}
	}
}
