package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber produces a unique order reference in the form
// CMD-YYYYMMDD-<8 uppercase hex chars>.
func GenerateOrderNumber(now time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("CMD-%s-%s", now.Format("20060102"), hex[:8])
}
