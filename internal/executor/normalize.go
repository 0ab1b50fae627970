package executor

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// maxUnwrapDepth bounds how far nested message/error maps are followed.
const maxUnwrapDepth = 2

// NormalizeMessage turns anything a step can fail with into a readable
// message. Nested {"message": ...} or {"error": ...} maps are unwrapped up to
// two levels, values without a message fall back to JSON, and a leading
// "Error: " is dropped.
func NormalizeMessage(v any) string {
	msg := strings.TrimSpace(messageOf(v, 0))
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "Error: "))
	if msg == "" {
		return "Unknown error"
	}
	return msg
}

func messageOf(v any, depth int) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case interface{ Message() string }:
		return x.Message()
	case error:
		return x.Error()
	case map[string]any:
		if depth < maxUnwrapDepth {
			for _, key := range []string{"message", "error"} {
				if inner, ok := x[key]; ok && inner != nil {
					return messageOf(inner, depth+1)
				}
			}
		}
	case map[string]string:
		for _, key := range []string{"message", "error"} {
			if inner, ok := x[key]; ok {
				return inner
			}
		}
	}

	if msg, ok := messageField(v); ok {
		return msg
	}
	if data, err := json.Marshal(v); err == nil {
		if s := string(data); s != "null" && s != "{}" {
			return s
		}
	}
	return fmt.Sprint(v)
}

// messageField reads a string Message field from a struct or struct pointer.
func messageField(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", false
	}
	f := rv.FieldByName("Message")
	if !f.IsValid() || f.Kind() != reflect.String {
		return "", false
	}
	return f.String(), true
}
