package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToString renders a scanned column value as text. nil becomes "".
func ToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// ToInt64 reads a scanned numeric column value. Values that are not numbers
// read as 0.
func ToInt64(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case uint64:
		return int64(val)
	case uint32:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case []byte:
		return ToInt64(string(val))
	default:
		return 0
	}
}
