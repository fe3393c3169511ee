package validation

import "reflect"

// messageTag reads the `msg` tag of a top-level struct field
func messageTag(s any, field string) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ""
	}
	f, ok := t.FieldByName(field)
	if !ok {
		return ""
	}
	return f.Tag.Get("msg")
}
