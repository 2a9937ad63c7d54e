package textnorm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCorrectFlag reports a correct/incorrect marker that could not be parsed.
// Unrecognized values are a contract violation and are never defaulted, so the
// judgment comparison downstream stays trustworthy.
var ErrCorrectFlag = errors.New("unrecognized correct flag")

// ParseCorrect normalizes the correct marker of an answer record to a
// canonical boolean. Accepted representations are JSON booleans and the
// strings "yes"/"no"/"true"/"false" in any case.
func ParseCorrect(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true":
			return true, nil
		case "no", "false":
			return false, nil
		default:
			return false, fmt.Errorf("%w: %q", ErrCorrectFlag, v)
		}
	default:
		return false, fmt.Errorf("%w: %T", ErrCorrectFlag, value)
	}
}
