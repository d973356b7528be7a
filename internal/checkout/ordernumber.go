package checkout

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateOrderNumber builds the human-readable order number: ORD, the date
// as YYMMDD, and a 4-digit random suffix. The order id stays the real key;
// a same-day suffix collision fails placement on the unique index.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%s%04d", now.UTC().Format("060102"), rand.IntN(10000))
}
