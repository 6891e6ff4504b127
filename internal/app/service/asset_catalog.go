package service

import (
	"strings"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"
	networkdefinition "wallet_client/internal/infrastructure/network/definition"
	"wallet_client/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

// DefaultAssetPriority is the fixed display order; other assets follow in payload order.
var DefaultAssetPriority = []string{"BTC", "ETH", "USDT", "SOL", "USDC", "BNB", "TRX"}

const formattedBalancePlaces = 6

// AssetCatalog turns balance payloads into display-ready assets. It holds no state
// besides the static tables it reads.
type AssetCatalog struct {
	networks port.NetworkProvider
	priority []string
}

// NewAssetCatalog creates a catalog over the given network table.
func NewAssetCatalog(networks port.NetworkProvider) *AssetCatalog {
	return &AssetCatalog{networks: networks, priority: DefaultAssetPriority}
}

// Normalize maps a payload to ordered assets. When no known asset is found it returns
// the zero-balance placeholder list and placeholder=true.
func (c *AssetCatalog) Normalize(payload entity.BalancePayload) (assets []entity.Asset, placeholder bool) {
	switch payload.Kind {
	case entity.PayloadNested:
		assets = c.fromNested(payload.Nested)
	case entity.PayloadFlat:
		assets = c.fromFlat(payload.Flat)
	}
	if len(assets) == 0 {
		return c.Placeholders(), true
	}
	utils.SortByPriority(assets, func(a entity.Asset) string { return a.Symbol }, c.priority)
	return assets, false
}

// Placeholders returns the priority assets at zero balance with networks from the fee table.
func (c *AssetCatalog) Placeholders() []entity.Asset {
	out := make([]entity.Asset, 0, len(c.priority))
	for _, symbol := range c.priority {
		cur, ok := c.networks.CurrencyByKey(strings.ToLower(symbol))
		if !ok {
			continue
		}
		a := newAsset(cur)
		for _, n := range c.networks.NetworksForAsset(cur.Symbol) {
			a.NetworkOrder = append(a.NetworkOrder, n.ID)
			a.PerNetwork[n.ID] = entity.NetworkBalance{}
		}
		finish(&a)
		out = append(out, a)
	}
	return out
}

func (c *AssetCatalog) fromNested(currencies []entity.NestedCurrency) []entity.Asset {
	out := make([]entity.Asset, 0, len(currencies))
	seen := make(map[string]struct{}, len(currencies))
	for _, nc := range currencies {
		cur, ok := c.networks.CurrencyByKey(nc.Key)
		if !ok {
			continue
		}
		if _, dup := seen[cur.Symbol]; dup {
			continue
		}
		seen[cur.Symbol] = struct{}{}

		a := newAsset(cur)
		priceSet, changeSet := false, false
		for _, ne := range nc.Networks {
			id := networkdefinition.NormalizeNetworkID(ne.Key)
			prev, exists := a.PerNetwork[id]
			if !exists {
				a.NetworkOrder = append(a.NetworkOrder, id)
			}
			a.PerNetwork[id] = entity.NetworkBalance{
				Balance:  prev.Balance.Add(ne.Fields.Balance),
				USDValue: prev.USDValue.Add(ne.Fields.ValueUSD),
			}
			a.AggregateBalance = a.AggregateBalance.Add(ne.Fields.Balance)
			a.AggregateUSDValue = a.AggregateUSDValue.Add(ne.Fields.ValueUSD)
			if !priceSet && ne.Fields.HasPrice {
				a.USDPrice, priceSet = ne.Fields.PriceUSD, true
			}
			if !changeSet && ne.Fields.HasChange {
				a.Pct24hChange, changeSet = ne.Fields.PctChange24h, true
			}
		}
		finish(&a)
		out = append(out, a)
	}
	return out
}

func (c *AssetCatalog) fromFlat(entries []entity.FlatEntry) []entity.Asset {
	out := make([]entity.Asset, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, fe := range entries {
		cur, ok := c.networks.CurrencyByKey(fe.Key)
		if !ok {
			continue
		}
		if _, dup := seen[cur.Symbol]; dup {
			continue
		}
		seen[cur.Symbol] = struct{}{}

		a := newAsset(cur)
		primary := cur.Key
		if nets := c.networks.NetworksForAsset(cur.Symbol); len(nets) > 0 {
			primary = nets[0].ID
		}
		a.NetworkOrder = []string{primary}
		a.PerNetwork[primary] = entity.NetworkBalance{Balance: fe.Fields.Balance, USDValue: fe.Fields.ValueUSD}
		a.AggregateBalance = fe.Fields.Balance
		a.AggregateUSDValue = fe.Fields.ValueUSD
		a.USDPrice = fe.Fields.PriceUSD
		a.Pct24hChange = fe.Fields.PctChange24h
		finish(&a)
		out = append(out, a)
	}
	return out
}

func newAsset(cur entity.Currency) entity.Asset {
	return entity.Asset{
		Key:               cur.Key,
		Symbol:            cur.Symbol,
		DisplayName:       cur.DisplayName,
		USDPrice:          decimal.Zero,
		Pct24hChange:      decimal.Zero,
		PerNetwork:        make(map[string]entity.NetworkBalance),
		AggregateBalance:  decimal.Zero,
		AggregateUSDValue: decimal.Zero,
	}
}

func finish(a *entity.Asset) {
	a.FormattedBalance = utils.TruncateDecimal(a.AggregateBalance, formattedBalancePlaces).StringFixed(formattedBalancePlaces)
	a.FormattedUSDValue = a.AggregateUSDValue.String()
}
