package types

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFamilies(t *testing.T) {
	cases := []struct {
		code   Code
		family Family
	}{
		{OK, FamilyNone},
		{InvalidBytecode, FamilyExecutable},
		{FuelMeteringDisabled, FamilyExecutable},
		{LedgerNotFound, FamilyLedger},
		{ReceiveBoolean, FamilyLedger},
		{Exception, FamilyRuntime},
		{ParseError, FamilyRuntime},
		{Code(7), FamilyUnknown},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(int32(tc.code)), func(t *testing.T) {
			assert.Equal(t, tc.family, tc.code.Family())
		})
	}
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, OK, CodeOf(nil))
	require.Equal(t, StackOverflow, CodeOf(StackOverflow))

	wrapped := errors.Wrap(errors.Wrap(FuncNotFound, "lookup"), "execute")
	require.Equal(t, FuncNotFound, CodeOf(wrapped))
	require.True(t, Is(wrapped, FuncNotFound))
	require.False(t, Is(wrapped, FailedExec))

	// plain errors come from the ledger side
	require.Equal(t, MethodCall, CodeOf(errors.New("boom")))
	require.Equal(t, MethodCall, CodeOf(fmt.Errorf("node: %w", errors.New("down"))))
}

func TestCodeError(t *testing.T) {
	require.Equal(t, "constructor not found (101)", ConstructorNotFound.Error())
	require.Equal(t, "unknown error (999)", Code(999).Error())
	require.Contains(t, errors.Wrap(Utf8Error, "func name").Error(), "func name: invalid utf-8 (302)")
}
