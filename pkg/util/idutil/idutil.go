// Package idutil canonicalizes entity identifiers that arrive in several
// encodings: plain strings, ObjectIDs, or objects wrapping the value under
// "id", "_id" or "$oid".
package idutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	hexPattern      = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)
	objectIDLiteral = regexp.MustCompile(`^ObjectId\(["']?([a-fA-F0-9]{24})["']?\)$`)
)

// wrapperKeys are probed in order when an id is encoded as an object.
var wrapperKeys = []string{"$oid", "_id", "id"}

// ReferenceKeys name document fields that always hold a single entity id.
// Survival decoding collapses these even when the legacy value is an object
// carrying extra fields next to the id.
var ReferenceKeys = map[string]struct{}{
	"userId":               {},
	"clientId":             {},
	"assignedTo":           {},
	"propertyId":           {},
	"assetId":              {},
	"technicianId":         {},
	"internalTechnicianId": {},
	"linkedUserId":         {},
	"scheduleId":           {},
	"templateId":           {},
	"issueId":              {},
}

// IsHex reports whether s is a 24-character hexadecimal identifier.
func IsHex(s string) bool {
	return hexPattern.MatchString(s)
}

// ObjectID parses a hex id.
func ObjectID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(strings.TrimSpace(s))
}

// Normalize returns the canonical string form of v, or false when v carries
// no usable id.
func Normalize(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return canonical(t)
	case *string:
		if t == nil {
			return "", false
		}
		return canonical(*t)
	case primitive.ObjectID:
		if t.IsZero() {
			return "", false
		}
		return t.Hex(), true
	case *primitive.ObjectID:
		if t == nil || t.IsZero() {
			return "", false
		}
		return t.Hex(), true
	case primitive.M:
		return fromMap(map[string]any(t))
	case map[string]any:
		return fromMap(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return fromMap(m)
	case fmt.Stringer:
		return canonical(t.String())
	default:
		return "", false
	}
}

// String is Normalize without the ok flag.
func String(v any) string {
	s, _ := Normalize(v)
	return s
}

// Equal is true only when both values normalize to the same id.
func Equal(a, b any) bool {
	na, ok := Normalize(a)
	if !ok {
		return false
	}
	nb, ok := Normalize(b)
	if !ok {
		return false
	}
	return na == nb
}

func canonical(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := objectIDLiteral.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if s == "" {
		return "", false
	}
	if IsHex(s) {
		return strings.ToLower(s), true
	}
	return s, true
}

func fromMap(m map[string]any) (string, bool) {
	for _, key := range wrapperKeys {
		if val, ok := m[key]; ok {
			if id, ok := Normalize(val); ok {
				return id, true
			}
		}
	}
	return "", false
}

// NormalizeDocument rewrites a raw document so that it decodes into typed
// structs: nested ObjectIDs become hex strings, id wrappers collapse to
// strings and extended-JSON dates become time values. The root _id is kept
// as an ObjectID.
func NormalizeDocument(doc primitive.M) primitive.M {
	out := make(primitive.M, len(doc))
	for key, val := range doc {
		if key == "_id" {
			out[key] = normalizeRootID(val)
			continue
		}
		out[key] = normalizeField(key, val)
	}
	return out
}

func normalizeRootID(v any) any {
	id, ok := Normalize(v)
	if !ok {
		return v
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return v
}

func normalizeField(key string, v any) any {
	if _, ref := ReferenceKeys[key]; ref {
		if id, ok := Normalize(v); ok {
			return id
		}
		if v == nil {
			return nil
		}
		return ""
	}
	return normalizeValue(v)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.A:
		return normalizeSlice([]any(t))
	case []any:
		return normalizeSlice(t)
	case primitive.D:
		m := make(primitive.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return normalizeMap(m)
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(primitive.M(t))
	default:
		return v
	}
}

func normalizeSlice(in []any) primitive.A {
	out := make(primitive.A, len(in))
	for i, item := range in {
		out[i] = normalizeValue(item)
	}
	return out
}

func normalizeMap(m primitive.M) any {
	if raw, ok := m["$date"]; ok && len(m) == 1 {
		if ts, ok := extendedDate(raw); ok {
			return ts
		}
	}
	if _, ok := m["$oid"]; ok {
		if id, ok := Normalize(m); ok {
			return id
		}
	}
	if len(m) == 1 {
		for _, key := range wrapperKeys {
			if _, ok := m[key]; ok {
				if id, ok := Normalize(m); ok {
					return id
				}
			}
		}
	}
	out := make(primitive.M, len(m))
	for key, val := range m {
		out[key] = normalizeField(key, val)
	}
	return out
}

func extendedDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		return ts, err == nil
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int32:
		return time.UnixMilli(int64(t)).UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case primitive.M:
		if s, ok := t["$numberLong"].(string); ok {
			ms, err := strconv.ParseInt(s, 10, 64)
			return time.UnixMilli(ms).UTC(), err == nil
		}
	case map[string]any:
		return extendedDate(primitive.M(t))
	}
	return time.Time{}, false
}
