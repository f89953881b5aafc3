package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the job label used for Pushgateway submissions.
const PushJob = "faadb"

// Push sends the current metric values to a Pushgateway. Batch runs exit
// before a scrape would see them.
func (m *Metrics) Push(ctx context.Context, gatewayURL, runID string) error {
	err := push.New(gatewayURL, PushJob).
		Gatherer(m.Gatherer()).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
