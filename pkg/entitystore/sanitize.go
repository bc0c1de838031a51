package entitystore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Value sanitation. Filter values travel as bound parameters, so escaping is
// only needed for the few identifier-position fragments (ORDER BY, GROUP BY,
// select expressions, join columns) that SQL cannot parameterize.

// fragmentPattern matches column references and simple aggregate expressions
// such as "e.guid", "total DESC" or "COUNT(e.guid) AS total".
var fragmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.,()* ]+$`)

// SanitizeString escapes single quotes for embedding a value into SQL text.
// Prefer bound parameters; this exists for the rare literal fragment.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "'", "''")
}

// SanitizeInt coerces v to an int64, rejecting anything that does not parse
// cleanly. Used for identifier values arriving as untyped input.
func SanitizeInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidArgument, v)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: cannot coerce %T to integer", ErrInvalidArgument, v)
	}
}

// ValidFragment reports whether s is safe to splice into identifier position.
func ValidFragment(s string) bool {
	return s == "" || fragmentPattern.MatchString(s)
}

// ValidateRelationshipName rejects empty or over-long relationship type names
// before any I/O happens.
func ValidateRelationshipName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: relationship name is empty", ErrInvalidArgument)
	}
	if len(name) > RelationshipNameLimit {
		return fmt.Errorf("%w: relationship name cannot be longer than %d", ErrInvalidArgument, RelationshipNameLimit)
	}
	return nil
}
