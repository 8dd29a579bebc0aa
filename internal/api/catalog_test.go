package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wazeroapi "github.com/tetratelabs/wazero/api"
)

func TestNamespaces(t *testing.T) {
	require.Equal(t, []string{Env0, Env1}, Namespaces())

	ns := Namespaces()
	ns[0] = "changed"
	require.Equal(t, Env0, Namespaces()[0])
}

func TestCatalogEntries(t *testing.T) {
	for _, ns := range Namespaces() {
		seen := make(map[string]bool)
		for _, f := range Catalog(ns) {
			require.Equal(t, ns, f.Namespace)
			require.False(t, seen[f.Name], "%s.%s declared twice", ns, f.Name)
			seen[f.Name] = true
			require.NotNil(t, f.fn, "%s.%s", ns, f.Name)

			got, ok := Lookup(ns, f.Name)
			require.True(t, ok)
			require.Equal(t, f.Params, got.Params)
		}
	}
	_, ok := Lookup(Env0, "no_such_function")
	require.False(t, ok)
	_, ok = Lookup("env9", "get_balance")
	require.False(t, ok)
}

func TestEnv1Signatures(t *testing.T) {
	i32, i64 := wazeroapi.ValueTypeI32, wazeroapi.ValueTypeI64

	cases := []struct {
		name    string
		params  []wazeroapi.ValueType
		results []wazeroapi.ValueType
	}{
		{"get_balance", sig(i32, i32, i32, i32, i32, i32), sig(i32, i64)},
		{"transfer", sig(i32, i32, i32, i32, i32, i32, i64), sig(i32)},
		{"issue", sig(i32, i32, i32, i32, i64, i64, i32), sig(i32, i32, i32)},
		{"get_payments", nil, sig(i32, i64)},
		{"get_payment_asset_id", sig(i64), sig(i32, i32, i32)},
		{"get_payment_amount", sig(i64), sig(i32, i64)},
		{"contains_key", sig(i32, i32, i32, i32), sig(i32, i32)},
		{"blake2b256", sig(i32, i32), sig(i32, i32, i32)},
		{"keccak256", sig(i32, i32), sig(i32, i32, i32)},
		{"sha256", sig(i32, i32), sig(i32, i32, i32)},
	}
	for _, tc := range cases {
		f, ok := Lookup(Env1, tc.name)
		require.True(t, ok, tc.name)
		assert.Equal(t, tc.params, f.Params, tc.name)
		assert.Equal(t, tc.results, f.Results, tc.name)
	}

	// env0 keeps the narrow forms
	f, ok := Lookup(Env0, "get_payments")
	require.True(t, ok)
	require.Equal(t, sig(i32, i32), f.Results)
	_, ok = Lookup(Env0, "contains_key")
	require.False(t, ok)
}
