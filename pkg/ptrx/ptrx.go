// Package ptrx builds and reads the optional profile fields carried as
// pointers across the request and storage layers.
package ptrx

import "strings"

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }

// StringOrNil trims v and maps blank input to nil.
func StringOrNil(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}

// StringValue dereferences p, reading nil as "".
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
