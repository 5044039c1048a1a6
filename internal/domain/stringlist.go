package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
)

var listSeparators = regexp.MustCompile(`[;,|]`)

// StringList is a list of strings that also accepts a single delimited
// string, which is how older records stored employees and blocks.
type StringList []string

// SplitList splits s on ';', ',' and '|' and drops empty entries.
func SplitList(s string) StringList {
	parts := listSeparators.Split(s, -1)
	out := make(StringList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UnmarshalJSON accepts a string or an array.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = SplitList(single)
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = fromItems(items)
	return nil
}

// UnmarshalBSONValue accepts a string or an array.
func (l *StringList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*l = nil
		return nil
	case bsontype.String:
		*l = SplitList(raw.StringValue())
		return nil
	case bsontype.Array:
		var items []any
		if err := raw.Unmarshal(&items); err != nil {
			return err
		}
		*l = fromItems(items)
		return nil
	}
	return fmt.Errorf("cannot decode %s into string list", t)
}

func fromItems(items []any) StringList {
	out := make(StringList, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, SplitList(s)...)
			continue
		}
		if id, ok := idutil.Normalize(item); ok {
			out = append(out, id)
			continue
		}
		if item != nil {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out
}
