// internal/adapters/queue/inspector.go
package queue

import (
	"fmt"

	"github.com/hibiken/asynq"
)

// Inspector reports queue depth for health checks
type Inspector struct {
	inspector *asynq.Inspector
}

// NewInspector wraps an asynq inspector
func NewInspector(inspector *asynq.Inspector) *Inspector {
	return &Inspector{inspector: inspector}
}

// QueueSizes returns the number of tasks in each known queue
func (i *Inspector) QueueSizes() (map[string]int, error) {
	queues, err := i.inspector.Queues()
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}

	sizes := make(map[string]int, len(queues))
	for _, q := range queues {
		info, err := i.inspector.GetQueueInfo(q)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect queue %s: %w", q, err)
		}
		sizes[q] = info.Size
	}
	return sizes, nil
}
