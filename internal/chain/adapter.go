package chain

import "context"

//go:generate mockgen -destination=mocks/mock_head_source.go -package=mocks . HeadSource

// HeadSource reports the best block height of the reference network.
type HeadSource interface {
	// Endpoint identifies the source in logs and metrics.
	Endpoint() string

	// HeadHeight returns the latest block height known to the reference network.
	HeadHeight(ctx context.Context) (uint64, error)
}
