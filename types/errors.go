package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is the status integer that crosses the engine boundary. Zero means
// success; any other value identifies both the error family and the condition.
//
// Code implements error so it can be returned directly or wrapped with
// github.com/pkg/errors and recovered later with CodeOf.
type Code int32

const OK Code = 0

// Module and execution errors.
const (
	InvalidBytecode      Code = 100
	ConstructorNotFound  Code = 101
	MemoryError          Code = 102
	MemoryLimits         Code = 103
	LinkerError          Code = 104
	InstantiateFailed    Code = 105
	HeapBaseNotFound     Code = 106
	FuncNotFound         Code = 107
	InvalidNumArgs       Code = 108
	FailedParseFuncArgs  Code = 109
	FailedDeserialize    Code = 110
	FailedExec           Code = 111
	StackOverflow        Code = 112
	ModuleNotFound       Code = 113
	FuelMeteringDisabled Code = 114
)

// Ledger bridge errors. A Ledger implementation that talks to a node over a
// foreign runtime reports its transport failures with these codes.
const (
	LedgerNotFound         Code = 200
	LedgerCallbackNotFound Code = 201
	AttachCurrentThread    Code = 202
	MethodCall             Code = 203
	ByteArrayConversion    Code = 204
	GetLedgerInterface     Code = 205
	NewGlobalRef           Code = 206
	NewByteArray           Code = 207
	NewString              Code = 208
	ReceiveObject          Code = 209
	ReceiveByte            Code = 210
	ReceiveInt             Code = 211
	ReceiveLong            Code = 212
	ReceiveBoolean         Code = 213
)

// Runtime and ABI errors.
const (
	Exception               Code = 300
	MemoryNotFound          Code = 301
	Utf8Error               Code = 302
	InvalidResult           Code = 303
	Base58Error             Code = 304
	ConvertingNumericTypes  Code = 305
	AssetHolderTypeNotFound Code = 306
	AddressVersionNotFound  Code = 307
	ParseError              Code = 308
)

// Family groups codes by the layer that produced them.
type Family int

const (
	FamilyNone Family = iota
	FamilyExecutable
	FamilyLedger
	FamilyRuntime
	FamilyUnknown
)

var codeNames = map[Code]string{
	OK:                      "ok",
	InvalidBytecode:         "invalid bytecode",
	ConstructorNotFound:     "constructor not found",
	MemoryError:             "memory error",
	MemoryLimits:            "memory limits",
	LinkerError:             "linker error",
	InstantiateFailed:       "instantiate failed",
	HeapBaseNotFound:        "heap base not found",
	FuncNotFound:            "function not found",
	InvalidNumArgs:          "invalid number of arguments",
	FailedParseFuncArgs:     "failed to parse function arguments",
	FailedDeserialize:       "failed to deserialize",
	FailedExec:              "failed during execution",
	StackOverflow:           "call stack overflow",
	ModuleNotFound:          "module not found",
	FuelMeteringDisabled:    "fuel metering disabled",
	LedgerNotFound:          "ledger not found",
	LedgerCallbackNotFound:  "ledger callback not found",
	AttachCurrentThread:     "failed to attach current thread",
	MethodCall:              "ledger method call failed",
	ByteArrayConversion:     "byte array conversion failed",
	GetLedgerInterface:      "failed to obtain ledger interface",
	NewGlobalRef:            "failed to create global reference",
	NewByteArray:            "failed to create byte array",
	NewString:               "failed to create string",
	ReceiveObject:           "failed to receive object",
	ReceiveByte:             "failed to receive byte",
	ReceiveInt:              "failed to receive int",
	ReceiveLong:             "failed to receive long",
	ReceiveBoolean:          "failed to receive boolean",
	Exception:               "exception during contract execution",
	MemoryNotFound:          "memory not found",
	Utf8Error:               "invalid utf-8",
	InvalidResult:           "invalid result",
	Base58Error:             "base58 decode failed",
	ConvertingNumericTypes:  "numeric conversion failed",
	AssetHolderTypeNotFound: "asset holder type not found",
	AddressVersionNotFound:  "address version not found",
	ParseError:              "parse error",
}

func (c Code) Error() string {
	if name, ok := codeNames[c]; ok {
		return fmt.Sprintf("%s (%d)", name, int32(c))
	}
	return fmt.Sprintf("unknown error (%d)", int32(c))
}

// Family reports which error family the code belongs to.
func (c Code) Family() Family {
	switch {
	case c == OK:
		return FamilyNone
	case c >= 100 && c < 200:
		return FamilyExecutable
	case c >= 200 && c < 300:
		return FamilyLedger
	case c >= 300 && c < 400:
		return FamilyRuntime
	default:
		return FamilyUnknown
	}
}

// CodeOf extracts the status code carried by err. A nil error is OK; an error
// that carries no code is reported as a failed ledger method call, since the
// only code-less errors reaching the engine come from Ledger implementations.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var code Code
	if errors.As(err, &code) {
		return code
	}
	return MethodCall
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
