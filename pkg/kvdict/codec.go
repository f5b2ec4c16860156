package kvdict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Values carry a type tag on the wire so that round trips preserve the
// original dynamic type: "int:42", "str:hello", "list:[1,2]" and so on.
// The reference store uses this form at rest and the revision transport
// uses it across the process boundary.
const (
	tagString = "str"
	tagInt    = "int"
	tagFloat  = "float"
	tagBool   = "bool"
	tagNone   = "none"
	tagList   = "list"
	tagDict   = "dict"
)

// Encode serializes a normalized value into its tagged wire form.
func Encode(v any) (string, error) {
	switch t := Normalize(v).(type) {
	case nil:
		return tagNone + ":", nil
	case string:
		return tagString + ":" + t, nil
	case int64:
		return tagInt + ":" + strconv.FormatInt(t, 10), nil
	case float64:
		return tagFloat + ":" + strconv.FormatFloat(t, 'g', -1, 64), nil
	case bool:
		return tagBool + ":" + strconv.FormatBool(t), nil
	case []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return "", NewError(KindUnsupportedValue, "list is not serializable", err)
		}
		return tagList + ":" + string(raw), nil
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return "", NewError(KindUnsupportedValue, "mapping is not serializable", err)
		}
		return tagDict + ":" + string(raw), nil
	default:
		return "", NewError(KindUnsupportedValue,
			fmt.Sprintf("unsupported value type %T", v), nil)
	}
}

// Decode restores a tagged wire value to its dynamic form.
func Decode(raw string) (any, error) {
	tag, payload, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, NewError(KindInternal, "malformed stored value", nil)
	}

	switch tag {
	case tagNone:
		return nil, nil
	case tagString:
		return payload, nil
	case tagInt:
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, NewError(KindInternal, "malformed integer value", err)
		}
		return n, nil
	case tagFloat:
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, NewError(KindInternal, "malformed float value", err)
		}
		return f, nil
	case tagBool:
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return nil, NewError(KindInternal, "malformed boolean value", err)
		}
		return b, nil
	case tagList, tagDict:
		v, err := decodeJSON(payload)
		if err != nil {
			return nil, NewError(KindInternal, "malformed container value", err)
		}
		return v, nil
	default:
		return nil, NewError(KindInternal, "unknown value tag "+tag, nil)
	}
}

// decodeJSON parses container payloads with number fidelity: integers stay
// int64 instead of collapsing to float64.
func decodeJSON(payload string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return convertNumbers(v), nil
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	default:
		return v
	}
}
