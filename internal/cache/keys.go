package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func GenerationStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("generation:%s", jobID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// AnalyticsKey is scoped by tenant as well as customer so a customer id can
// never read another tenant's cached report.
func AnalyticsKey(tenantID, customerID uuid.UUID) string {
	return fmt.Sprintf("analytics:%s:%s", tenantID, customerID)
}
