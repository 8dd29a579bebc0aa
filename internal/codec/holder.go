package codec

import (
	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

// HolderType selects between account and contract holders.
type HolderType uint32

const (
	HolderAccount  HolderType = 0
	HolderContract HolderType = 1
)

// AddressVersion selects how an account holder is addressed.
type AddressVersion uint32

const (
	VersionAddress AddressVersion = 1
	VersionAlias   AddressVersion = 2
)

// ParseHolderType validates a guest-supplied holder type.
func ParseHolderType(v uint32) (HolderType, error) {
	switch t := HolderType(v); t {
	case HolderAccount, HolderContract:
		return t, nil
	default:
		return 0, errors.Wrapf(types.AssetHolderTypeNotFound, "holder type %d", v)
	}
}

// ParseAddressVersion validates a guest-supplied address version.
func ParseAddressVersion(v uint32) (AddressVersion, error) {
	switch ver := AddressVersion(v); ver {
	case VersionAddress, VersionAlias:
		return ver, nil
	default:
		return 0, errors.Wrapf(types.AddressVersionNotFound, "address version %d", v)
	}
}

// AssetHolder encodes a holder for the ledger:
//
//	account address  [0] ‖ address
//	account alias    [0, 2, chainID] ‖ alias
//	contract         [1] ‖ contract id
//
// The version is ignored for contract holders.
func AssetHolder(typ HolderType, version AddressVersion, chainID byte, id []byte) []byte {
	var out []byte
	switch typ {
	case HolderContract:
		out = append(make([]byte, 0, 1+len(id)), 1)
	default:
		if version == VersionAlias {
			out = append(make([]byte, 0, 3+len(id)), 0, 2, chainID)
		} else {
			out = append(make([]byte, 0, 1+len(id)), 0)
		}
	}
	return append(out, id...)
}
