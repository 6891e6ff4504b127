package service

import (
	"strings"
	"sync"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"
	networkdefinition "wallet_client/internal/infrastructure/network/definition"
)

// CatalogStore holds the current asset catalog. Every Replace swaps all of it at once
// and bumps LastUpdated; readers get snapshots they must not mutate.
type CatalogStore struct {
	catalog *AssetCatalog
	logger  port.Logger

	mu          sync.RWMutex
	assets      []entity.Asset
	addresses   entity.WalletAddresses
	placeholder bool
	lastUpdated uint64
}

// NewCatalogStore starts with the placeholder catalog and LastUpdated 0.
func NewCatalogStore(catalog *AssetCatalog, logger port.Logger) *CatalogStore {
	return &CatalogStore{
		catalog:     catalog,
		logger:      logger,
		assets:      catalog.Placeholders(),
		addresses:   entity.WalletAddresses{},
		placeholder: true,
	}
}

// Replace parses raw, normalizes it and swaps the catalog. addresses replace the stored
// deposit addresses when non-nil. A malformed payload leaves the store untouched.
func (s *CatalogStore) Replace(raw []byte, addresses entity.WalletAddresses) (entity.CatalogSnapshot, error) {
	payload, err := ParseBalancePayload(raw)
	if err != nil {
		return s.Snapshot(), err
	}
	assets, placeholder := s.catalog.Normalize(payload)

	s.mu.Lock()
	s.assets = assets
	s.placeholder = placeholder
	if addresses != nil {
		s.addresses = normalizeAddresses(addresses)
	}
	s.lastUpdated++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("Asset catalog replaced", "shape", payload.Kind.String(), "assets", len(assets), "last_updated", snap.LastUpdated)
	return snap, nil
}

// Snapshot returns the current catalog.
func (s *CatalogStore) Snapshot() entity.CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *CatalogStore) snapshotLocked() entity.CatalogSnapshot {
	assets := make([]entity.Asset, len(s.assets))
	copy(assets, s.assets)
	addrs := make(entity.WalletAddresses, len(s.addresses))
	for k, v := range s.addresses {
		addrs[k] = v
	}
	return entity.CatalogSnapshot{
		LastUpdated: s.lastUpdated,
		Assets:      assets,
		Addresses:   addrs,
		Placeholder: s.placeholder,
	}
}

// LastUpdated returns the monotonic update token.
func (s *CatalogStore) LastUpdated() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// AssetBySymbol looks an asset up case-insensitively.
func (s *CatalogStore) AssetBySymbol(symbol string) (entity.Asset, bool) {
	return s.Snapshot().AssetBySymbol(symbol)
}

// WalletAddress returns the wallet's own deposit address for (symbol, networkID).
func (s *CatalogStore) WalletAddress(symbol, networkID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := strings.ToLower(symbol)
	for _, a := range s.assets {
		if strings.EqualFold(a.Symbol, symbol) {
			key = a.Key
			break
		}
	}
	return s.addresses.Lookup(key, networkID)
}

// normalizeAddresses lowercases currency keys and resolves network aliases so lookups
// use the same ids as the fee table.
func normalizeAddresses(in entity.WalletAddresses) entity.WalletAddresses {
	out := make(entity.WalletAddresses, len(in))
	for cur, byNet := range in {
		key := strings.ToLower(strings.TrimSpace(cur))
		if out[key] == nil {
			out[key] = make(map[string]string, len(byNet))
		}
		for net, addr := range byNet {
			out[key][networkdefinition.NormalizeNetworkID(net)] = addr
		}
	}
	return out
}

var _ port.CatalogReader = (*CatalogStore)(nil)
