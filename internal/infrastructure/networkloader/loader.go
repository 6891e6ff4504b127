package networkloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"
	"wallet_client/internal/pkg/utils"
)

// OverrideFileLoader reads fee/limit override files, one per asset: <dir>/<asset>.json
// holding an array of {networkId, feeAmount, minDeposit, maxDeposit}.
type OverrideFileLoader struct {
	dirPath string
	logger  port.Logger
}

// NewOverrideLoader creates a loader for dirPath. An empty dirPath disables overrides.
func NewOverrideLoader(dirPath string, log port.Logger) *OverrideFileLoader {
	return &OverrideFileLoader{dirPath: dirPath, logger: log}
}

// Load scans the directory and returns every override found. A missing directory yields
// no overrides; unreadable or malformed files are skipped with a warning.
func (l *OverrideFileLoader) Load() ([]entity.NetworkOverride, error) {
	if l.dirPath == "" {
		return nil, nil
	}

	files, err := os.ReadDir(l.dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("Network override directory not found, using built-in fees.", "path", l.dirPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read network override directory %s: %w", l.dirPath, err)
	}

	var out []entity.NetworkOverride
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		filePath := filepath.Join(l.dirPath, file.Name())

		entries, err := utils.LoadJSONFile[[]entity.NetworkOverride](filePath)
		if err != nil {
			l.logger.Warn("Failed to load network override file, skipping file.", "path", filePath, "error", err)
			continue
		}

		loaded := 0
		for _, e := range entries {
			if strings.TrimSpace(e.NetworkID) == "" {
				l.logger.Warn("Override entry without networkId, skipping entry.", "path", filePath)
				continue
			}
			e.AssetSymbol = symbol
			out = append(out, e)
			loaded++
		}
		l.logger.Debug("Loaded network overrides from file", "asset", symbol, "file", file.Name(), "count", loaded)
	}
	return out, nil
}
