package api

import (
	"fmt"
	"strconv"
	"strings"
)

// Decimal decodes the backend's money fields, which arrive either as JSON
// numbers or as quoted decimal strings depending on the serializer.
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", s, err)
	}
	*d = Decimal(f)
	return nil
}
