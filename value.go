package globalcache

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EncodeValue converts a mapped attribute value into its stored string form.
//
// nil means absent (found == false). Strings and byte slices are stored
// as-is, numbers and booleans through strconv, fmt.Stringer through String,
// and anything else (slices, maps, structs) as JSON.
func EncodeValue(v any) (encoded string, found bool, err error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case *string:
		if t == nil {
			return "", false, nil
		}
		return *t, true, nil
	case []byte:
		return string(t), true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	case int:
		return strconv.Itoa(t), true, nil
	case int8:
		return strconv.FormatInt(int64(t), 10), true, nil
	case int16:
		return strconv.FormatInt(int64(t), 10), true, nil
	case int32:
		return strconv.FormatInt(int64(t), 10), true, nil
	case int64:
		return strconv.FormatInt(t, 10), true, nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), true, nil
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true, nil
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true, nil
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true, nil
	case uint64:
		return strconv.FormatUint(t, 10), true, nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true, nil
	case fmt.Stringer:
		return t.String(), true, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", false, WithContext(ErrUnsupportedValue, map[string]interface{}{
			"type":   fmt.Sprintf("%T", v),
			"reason": err.Error(),
		})
	}
	if string(data) == "null" {
		return "", false, nil
	}
	return string(data), true, nil
}
