package checks

import (
	"context"
	"sort"
	"strings"

	"github.com/lifeloop/lifeloop/internal/monitoring"
)

// Collaborators reports which outbound integrations are configured. Missing
// integrations degrade the report since the affected flows fail per request.
func Collaborators(configured map[string]bool) monitoring.Check {
	return monitoring.NewCheck("collaborators", func(context.Context) monitoring.ProbeResult {
		var missing []string
		for name, ok := range configured {
			if !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp}
		}

		sort.Strings(missing)
		return monitoring.ProbeResult{
			Status:  monitoring.StatusDegraded,
			Details: "not configured: " + strings.Join(missing, ", "),
		}
	})
}
