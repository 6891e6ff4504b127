package provider

import (
	"wallet_client/internal/app/port"
	networkdefinition "wallet_client/internal/infrastructure/network/definition"
	"wallet_client/internal/infrastructure/networkloader"
)

// NewNetworkProvider builds the fee/limit table and applies overrides from overridesDir.
// A broken override directory is logged and ignored; the built-in table is always usable.
func NewNetworkProvider(overridesDir string, logger port.Logger) port.NetworkProvider {
	defs := networkdefinition.NewNetworkDefinitionProvider(logger)

	overrides, err := networkloader.NewOverrideLoader(overridesDir, logger).Load()
	if err != nil {
		logger.Error("Failed to load network overrides, using built-in table", "path", overridesDir, "error", err)
		return defs
	}
	if len(overrides) > 0 {
		applied := defs.ApplyOverrides(overrides)
		logger.Info("Network fee table ready", "overrides_found", len(overrides), "overrides_applied", applied)
	}
	return defs
}
