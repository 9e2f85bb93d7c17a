package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FileSize renders a byte count the way the portal displays attachments:
// base-1024 units with up to two significant decimals ("1.5 KB", "0 Bytes").
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	exp := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if exp >= len(sizeUnits) {
		exp = len(sizeUnits) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(exp))
	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")

	return fmt.Sprintf("%s %s", s, sizeUnits[exp])
}
