package port

import "wallet_client/internal/domain/entity"

// CatalogReader is the read side of the asset catalog handed to the withdrawal flow
// and the REST handlers.
type CatalogReader interface {
	Snapshot() entity.CatalogSnapshot
}
