package log

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// redacted replaces the value of any key that looks like a credential.
const redacted = "<redacted>"

// sensitiveKeyParts mark keys whose values never reach the log output,
// e.g. "secretAccessKey" or "password".
var sensitiveKeyParts = []string{"secret", "password", "token"}

// maxTextLen bounds tool output attached to a log entry; the tail is kept
// because esptool and the generator print the cause last.
const maxTextLen = 2048

// toFields converts a flexible list of arguments to a slice of zap.Field.
// A zap.Field or an error standing on its own is passed through, everything
// else is read as key/value pairs. A trailing unpaired value is kept under
// "arg#N".
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		keyStr, ok := key.(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
				"key":   key,
				"value": val,
			}))
			continue
		}
		fields = append(fields, toField(keyStr, val))
	}

	return fields
}

func toField(key string, val any) zap.Field {
	if isSensitive(key) {
		return zap.String(key, redacted)
	}

	switch v := val.(type) {
	case string:
		return zap.String(key, v)
	case bool:
		return zap.Bool(key, v)
	case int:
		return zap.Int(key, v)
	case int64:
		return zap.Int64(key, v)
	case uint64:
		return zap.Uint64(key, v)
	case float64:
		return zap.Float64(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case error:
		return zap.NamedError(key, v)
	case []string:
		return zap.Strings(key, v)
	case []byte:
		// Tool output is text; binary encoding would hide it.
		return zap.String(key, tail(strings.TrimSpace(string(v)), maxTextLen))
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
