package ports

import (
	"context"

	"goviper/domain/regulon"
)

// RegulonSource loads a regulatory network from a file
type RegulonSource interface {
	LoadNetwork(ctx context.Context, path string) (*regulon.Network, error)
}
