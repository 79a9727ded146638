package querier

import (
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/workflow-lens/lens-go/internal/observability"
)

// Dial connects to a Temporal server, routing SDK logs through slog. Empty
// address and namespace fall back to the SDK defaults.
func Dial(address, namespace string, logger *slog.Logger) (client.Client, error) {
	return client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
		Logger:    observability.NewTemporalSlogAdapter(logger),
	})
}
