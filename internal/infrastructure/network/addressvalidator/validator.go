package addressvalidator

import (
	"fmt"
	"strings"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	tronaddress "github.com/fbsobreira/gotron-sdk/pkg/address"
)

const solanaPublicKeyLen = 32

// Validator checks recipient addresses per address family. Networks without a family
// are accepted as-is; the wallet service still validates them.
type Validator struct {
	btcParams *chaincfg.Params
}

// New returns a mainnet validator.
func New() *Validator {
	return &Validator{btcParams: &chaincfg.MainNetParams}
}

// Validate returns a ValidationError when address does not fit network's format.
func (v *Validator) Validate(network entity.Network, address string) error {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return entity.NewValidationError("Recipient address is required.")
	}

	var err error
	switch network.Family {
	case entity.AddressFamilyEVM:
		err = validateEVM(addr)
	case entity.AddressFamilyBitcoin:
		err = v.validateBitcoin(addr)
	case entity.AddressFamilyTron:
		err = validateTron(addr)
	case entity.AddressFamilySolana:
		err = validateSolana(addr)
	}
	if err != nil {
		return &entity.FlowError{
			Class:   entity.ErrValidation,
			Message: fmt.Sprintf("The recipient address is not a valid %s address.", network.DisplayName),
			Cause:   err,
		}
	}
	return nil
}

func validateEVM(addr string) error {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("missing 0x prefix")
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("not a 20-byte hex address")
	}
	return nil
}

func (v *Validator) validateBitcoin(addr string) error {
	decoded, err := btcutil.DecodeAddress(addr, v.btcParams)
	if err != nil {
		return fmt.Errorf("invalid bitcoin address: %w", err)
	}
	if !decoded.IsForNet(v.btcParams) {
		return fmt.Errorf("address is not for %s", v.btcParams.Name)
	}
	return nil
}

func validateTron(addr string) error {
	if !strings.HasPrefix(addr, "T") {
		return fmt.Errorf("tron address must start with T")
	}
	if _, err := tronaddress.Base58ToAddress(addr); err != nil {
		return fmt.Errorf("invalid tron address: %w", err)
	}
	return nil
}

func validateSolana(addr string) error {
	raw := base58.Decode(addr)
	if len(raw) != solanaPublicKeyLen {
		return fmt.Errorf("expected %d-byte public key, got %d", solanaPublicKeyLen, len(raw))
	}
	return nil
}

var _ port.AddressValidator = (*Validator)(nil)
