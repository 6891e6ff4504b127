package networkdefinition

import (
	"fmt"
	"strings"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// NetworkDefinitionProvider serves the per-asset fee and deposit-limit table.
type NetworkDefinitionProvider struct {
	logger     port.Logger
	byAsset    map[string][]entity.Network
	currencies map[string]entity.Currency
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Predefined (asset, network) definitions, grouped by asset in display order.
var knownNetworks = []entity.Network{ //nolint:gochecknoglobals // Global for definitions
	{
		ID: "bitcoin", AssetSymbol: "BTC", DisplayName: "Bitcoin", Family: entity.AddressFamilyBitcoin,
		ConfirmationsLabel: "2 confirmations", MinDepositLabel: "0.0001 BTC", EstArrivalLabel: "~30 min",
		FeeAmount: d("0.0002"), MinDeposit: d("0.0001"), MaxDeposit: d("100"),
		ExplorerTxURL: "https://mempool.space/tx/{tx}",
	},
	{
		ID: "ethereum", AssetSymbol: "ETH", DisplayName: "Ethereum (ERC20)", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "12 confirmations", MinDepositLabel: "0.005 ETH", EstArrivalLabel: "~5 min",
		FeeAmount: d("0.002"), MinDeposit: d("0.005"), MaxDeposit: d("1000"),
		ExplorerTxURL: "https://etherscan.io/tx/{tx}",
	},
	{
		ID: "base", AssetSymbol: "ETH", DisplayName: "Base", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "12 confirmations", MinDepositLabel: "0.001 ETH", EstArrivalLabel: "~2 min",
		FeeAmount: d("0.0002"), MinDeposit: d("0.001"), MaxDeposit: d("1000"),
		ExplorerTxURL: "https://basescan.org/tx/{tx}",
	},
	{
		ID: "tron", AssetSymbol: "USDT", DisplayName: "Tron (TRC20)", Family: entity.AddressFamilyTron,
		ConfirmationsLabel: "20 confirmations", MinDepositLabel: "10 USDT", EstArrivalLabel: "~3 min",
		FeeAmount: d("1"), MinDeposit: d("10"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://tronscan.org/#/transaction/{tx}",
	},
	{
		ID: "ethereum", AssetSymbol: "USDT", DisplayName: "Ethereum (ERC20)", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "12 confirmations", MinDepositLabel: "20 USDT", EstArrivalLabel: "~5 min",
		FeeAmount: d("5"), MinDeposit: d("20"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://etherscan.io/tx/{tx}",
	},
	{
		ID: "bsc", AssetSymbol: "USDT", DisplayName: "BNB Smart Chain (BEP20)", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "15 confirmations", MinDepositLabel: "10 USDT", EstArrivalLabel: "~1 min",
		FeeAmount: d("0.5"), MinDeposit: d("10"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://bscscan.com/tx/{tx}",
	},
	{
		ID: "solana", AssetSymbol: "USDT", DisplayName: "Solana (SPL)", Family: entity.AddressFamilySolana,
		ConfirmationsLabel: "1 confirmation", MinDepositLabel: "5 USDT", EstArrivalLabel: "~1 min",
		FeeAmount: d("1"), MinDeposit: d("5"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://solscan.io/tx/{tx}",
	},
	{
		ID: "solana", AssetSymbol: "SOL", DisplayName: "Solana", Family: entity.AddressFamilySolana,
		ConfirmationsLabel: "1 confirmation", MinDepositLabel: "0.01 SOL", EstArrivalLabel: "~1 min",
		FeeAmount: d("0.001"), MinDeposit: d("0.01"), MaxDeposit: d("100000"),
		ExplorerTxURL: "https://solscan.io/tx/{tx}",
	},
	{
		ID: "ethereum", AssetSymbol: "USDC", DisplayName: "Ethereum (ERC20)", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "12 confirmations", MinDepositLabel: "20 USDC", EstArrivalLabel: "~5 min",
		FeeAmount: d("5"), MinDeposit: d("20"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://etherscan.io/tx/{tx}",
	},
	{
		ID: "base", AssetSymbol: "USDC", DisplayName: "Base", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "12 confirmations", MinDepositLabel: "5 USDC", EstArrivalLabel: "~2 min",
		FeeAmount: d("0.5"), MinDeposit: d("5"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://basescan.org/tx/{tx}",
	},
	{
		ID: "solana", AssetSymbol: "USDC", DisplayName: "Solana (SPL)", Family: entity.AddressFamilySolana,
		ConfirmationsLabel: "1 confirmation", MinDepositLabel: "5 USDC", EstArrivalLabel: "~1 min",
		FeeAmount: d("1"), MinDeposit: d("5"), MaxDeposit: d("1000000"),
		ExplorerTxURL: "https://solscan.io/tx/{tx}",
	},
	{
		ID: "bsc", AssetSymbol: "BNB", DisplayName: "BNB Smart Chain (BEP20)", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "15 confirmations", MinDepositLabel: "0.01 BNB", EstArrivalLabel: "~1 min",
		FeeAmount: d("0.0005"), MinDeposit: d("0.01"), MaxDeposit: d("10000"),
		ExplorerTxURL: "https://bscscan.com/tx/{tx}",
	},
	{
		ID: "tron", AssetSymbol: "TRX", DisplayName: "Tron", Family: entity.AddressFamilyTron,
		ConfirmationsLabel: "20 confirmations", MinDepositLabel: "10 TRX", EstArrivalLabel: "~3 min",
		FeeAmount: d("1"), MinDeposit: d("10"), MaxDeposit: d("10000000"),
		ExplorerTxURL: "https://tronscan.org/#/transaction/{tx}",
	},
	{
		ID: "litecoin", AssetSymbol: "LTC", DisplayName: "Litecoin",
		ConfirmationsLabel: "6 confirmations", MinDepositLabel: "0.01 LTC", EstArrivalLabel: "~15 min",
		FeeAmount: d("0.001"), MinDeposit: d("0.01"), MaxDeposit: d("10000"),
		ExplorerTxURL: "https://blockchair.com/litecoin/transaction/{tx}",
	},
	{
		ID: "dogecoin", AssetSymbol: "DOGE", DisplayName: "Dogecoin",
		ConfirmationsLabel: "40 confirmations", MinDepositLabel: "50 DOGE", EstArrivalLabel: "~40 min",
		FeeAmount: d("5"), MinDeposit: d("50"), MaxDeposit: d("10000000"),
		ExplorerTxURL: "https://blockchair.com/dogecoin/transaction/{tx}",
	},
	{
		ID: "polygon", AssetSymbol: "POL", DisplayName: "Polygon PoS", Family: entity.AddressFamilyEVM,
		ConfirmationsLabel: "128 confirmations", MinDepositLabel: "1 POL", EstArrivalLabel: "~5 min",
		FeeAmount: d("0.1"), MinDeposit: d("1"), MaxDeposit: d("10000000"),
		ExplorerTxURL: "https://polygonscan.com/tx/{tx}",
	},
}

// Backend currency keys the client recognises. Keys outside this list are dropped.
var knownCurrencies = []entity.Currency{ //nolint:gochecknoglobals // Global for definitions
	{Key: "btc", Symbol: "BTC", DisplayName: "Bitcoin"},
	{Key: "eth", Symbol: "ETH", DisplayName: "Ethereum"},
	{Key: "usdt", Symbol: "USDT", DisplayName: "Tether"},
	{Key: "sol", Symbol: "SOL", DisplayName: "Solana"},
	{Key: "usdc", Symbol: "USDC", DisplayName: "USD Coin"},
	{Key: "bnb", Symbol: "BNB", DisplayName: "BNB"},
	{Key: "trx", Symbol: "TRX", DisplayName: "TRON"},
	{Key: "ltc", Symbol: "LTC", DisplayName: "Litecoin"},
	{Key: "doge", Symbol: "DOGE", DisplayName: "Dogecoin"},
	{Key: "pol", Symbol: "POL", DisplayName: "Polygon"},
	{Key: "matic", Symbol: "POL", DisplayName: "Polygon"},
}

// networkAliases maps token-standard names the backend sometimes uses to network ids.
var networkAliases = map[string]string{ //nolint:gochecknoglobals // Global for definitions
	"btc":      "bitcoin",
	"eth":      "ethereum",
	"erc20":    "ethereum",
	"trc20":    "tron",
	"trx":      "tron",
	"bep20":    "bsc",
	"bnb":      "bsc",
	"bnbchain": "bsc",
	"sol":      "solana",
	"spl":      "solana",
	"matic":    "polygon",
	"ltc":      "litecoin",
	"doge":     "dogecoin",
}

// NormalizeNetworkID lowercases a backend network key and resolves known aliases.
func NormalizeNetworkID(key string) string {
	id := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := networkAliases[id]; ok {
		return alias
	}
	return id
}

// NewNetworkDefinitionProvider builds the provider from the built-in table.
func NewNetworkDefinitionProvider(log port.Logger) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:     log,
		byAsset:    make(map[string][]entity.Network),
		currencies: make(map[string]entity.Currency, len(knownCurrencies)),
	}
	for _, n := range knownNetworks {
		p.byAsset[n.AssetSymbol] = append(p.byAsset[n.AssetSymbol], n)
	}
	for _, c := range knownCurrencies {
		p.currencies[c.Key] = c
	}
	return p
}

// ApplyOverrides replaces fee/limit values for known (asset, network) pairs.
// It must run before the provider is shared. Unknown pairs are skipped.
func (p *NetworkDefinitionProvider) ApplyOverrides(overrides []entity.NetworkOverride) int {
	applied := 0
	for _, o := range overrides {
		symbol := strings.ToUpper(o.AssetSymbol)
		id := NormalizeNetworkID(o.NetworkID)
		nets := p.byAsset[symbol]
		idx := -1
		for i := range nets {
			if nets[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			p.logger.Warn(fmt.Sprintf("Override for unknown network %s/%s, skipping.", symbol, id))
			continue
		}
		if o.FeeAmount != nil {
			nets[idx].FeeAmount = *o.FeeAmount
		}
		if o.MinDeposit != nil {
			nets[idx].MinDeposit = *o.MinDeposit
		}
		if o.MaxDeposit != nil {
			nets[idx].MaxDeposit = *o.MaxDeposit
		}
		applied++
	}
	if applied > 0 {
		p.logger.Info("Applied network overrides", "count", applied)
	}
	return applied
}

// NetworksForAsset returns a copy of the asset's networks in table order.
func (p *NetworkDefinitionProvider) NetworksForAsset(symbol string) []entity.Network {
	if p == nil {
		return []entity.Network{}
	}
	nets := p.byAsset[strings.ToUpper(symbol)]
	out := make([]entity.Network, len(nets))
	copy(out, nets)
	return out
}

// Network returns a specific (asset, network) definition.
func (p *NetworkDefinitionProvider) Network(symbol, networkID string) (entity.Network, bool) {
	if p == nil {
		return entity.Network{}, false
	}
	id := NormalizeNetworkID(networkID)
	for _, n := range p.byAsset[strings.ToUpper(symbol)] {
		if n.ID == id {
			return n, true
		}
	}
	return entity.Network{}, false
}

// DepositLimit returns min/max deposit amounts for an (asset, network).
func (p *NetworkDefinitionProvider) DepositLimit(symbol, networkID string) (entity.DepositLimit, bool) {
	n, ok := p.Network(symbol, networkID)
	if !ok {
		return entity.DepositLimit{}, false
	}
	return entity.DepositLimit{AssetSymbol: n.AssetSymbol, NetworkID: n.ID, Min: n.MinDeposit, Max: n.MaxDeposit}, true
}

// CurrencyByKey resolves a backend currency key, case-insensitively.
func (p *NetworkDefinitionProvider) CurrencyByKey(key string) (entity.Currency, bool) {
	if p == nil {
		return entity.Currency{}, false
	}
	c, ok := p.currencies[strings.ToLower(strings.TrimSpace(key))]
	return c, ok
}

var _ port.NetworkProvider = (*NetworkDefinitionProvider)(nil)
