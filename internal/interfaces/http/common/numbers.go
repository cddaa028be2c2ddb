package common

import (
	"strconv"
	"strings"
)

// ParseInt parses a trimmed integer. Sign checks are left to the caller.
func ParseInt(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}
