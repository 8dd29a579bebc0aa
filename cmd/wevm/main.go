// Command wevm runs and validates contracts locally against the in-memory
// ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wavesenterprise/wevm"
	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/simulation"
	"github.com/wavesenterprise/wevm/types"
)

const defaultFuel = 10_000_000

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "wevm",
		Short:        "Run WebAssembly contracts against a simulated ledger",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")

	loadVM := func() (*wevm.VM, error) {
		if configPath == "" {
			return wevm.NewVM()
		}
		cfg, err := types.LoadVMConfig(configPath)
		if err != nil {
			return nil, err
		}
		return wevm.NewVMWithConfig(cfg)
	}

	root.AddCommand(newValidateCmd(loadVM), newStoreCmd(loadVM), newRunCmd(loadVM), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wevm v%s\n", version)
		},
	}
}

func newValidateCmd(loadVM func() (*wevm.VM, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.wasm>",
		Short: "Check that a contract would load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			vm, err := loadVM()
			if err != nil {
				return err
			}
			defer vm.Close()

			if err := vm.ValidateBytecode(bz); err != nil {
				return errors.Wrapf(err, "status %d", wevm.Status(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func newStoreCmd(loadVM func() (*wevm.VM, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "store <contract-id> <file.wasm>",
		Short: "Put a contract into the configured code store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			vm, err := loadVM()
			if err != nil {
				return err
			}
			defer vm.Close()

			checksum, err := vm.StoreCode([]byte(args[0]), bz)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored code with checksum: %X\n", []byte(checksum))
			return nil
		},
	}
}

func newRunCmd(loadVM func() (*wevm.VM, error)) *cobra.Command {
	var (
		fuel    uint64
		params  []string
		deploys []string
		height  int64
	)
	cmd := &cobra.Command{
		Use:   "run <file.wasm> <func>",
		Short: "Invoke a function of a contract",
		Long: "Invoke a function of a contract. Parameters are typed: int:42, bool:true,\n" +
			"bin:<base58> or str:text. Contracts it calls are deployed with --deploy id=file.wasm.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			list, err := parseParams(params)
			if err != nil {
				return err
			}
			vm, err := loadVM()
			if err != nil {
				return err
			}
			defer vm.Close()

			var opts []simulation.Option
			if store := vm.CodeStore(); store != nil {
				opts = append(opts, simulation.WithCodeStore(store))
			}
			ledger := simulation.NewLedger(opts...)
			ledger.SetBlock(height, 0)
			for _, d := range deploys {
				id, path, ok := strings.Cut(d, "=")
				if !ok {
					return errors.Errorf("deploy %q: want id=file.wasm", d)
				}
				code, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := ledger.Deploy([]byte(id), code); err != nil {
					return errors.Wrapf(err, "deploy %s", id)
				}
			}

			checkpoint, err := ledger.Checkpoint()
			if err != nil {
				return err
			}
			contractID := contractIDFromPath(args[0])
			status, runErr := vm.RunContract(context.Background(), contractID, bz, args[1], list, fuel, ledger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %d\n", status)
			if runErr != nil {
				// a failed invocation leaves no state behind
				if err := ledger.Rollback(checkpoint); err != nil {
					return err
				}
			}
			for _, key := range ledger.Keys(contractID) {
				if v, ok := ledger.StorageValue(contractID, key); ok {
					fmt.Fprintf(out, "  %s = %s\n", key, v)
				}
			}
			return runErr
		},
	}
	cmd.Flags().Uint64Var(&fuel, "fuel", defaultFuel, "fuel limit")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "typed parameter, repeatable")
	cmd.Flags().StringArrayVar(&deploys, "deploy", nil, "id=file.wasm of a callable contract, repeatable")
	cmd.Flags().Int64Var(&height, "height", 1, "block height")
	return cmd
}

// contractIDFromPath names a contract after its file without the directory
// and the .wasm extension.
func contractIDFromPath(path string) []byte {
	return []byte(strings.TrimSuffix(filepath.Base(path), ".wasm"))
}

// parseParams encodes typed command-line parameters as a parameter list.
func parseParams(raw []string) ([]byte, error) {
	var list codec.ParameterList
	for _, p := range raw {
		kind, text, ok := strings.Cut(p, ":")
		if !ok {
			return nil, errors.Errorf("param %q: want type:value", p)
		}
		var v codec.Value
		switch kind {
		case "int":
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "param %q", p)
			}
			v = codec.IntegerValue(n)
		case "bool":
			b, err := strconv.ParseBool(text)
			if err != nil {
				return nil, errors.Wrapf(err, "param %q", p)
			}
			if b {
				v = codec.BooleanValue(1)
			} else {
				v = codec.BooleanValue(0)
			}
		case "bin":
			b, err := base58.Decode(text)
			if err != nil {
				return nil, errors.Wrapf(err, "param %q", p)
			}
			v = codec.BinaryValue(b)
		case "str":
			v = codec.StringValue([]byte(text))
		default:
			return nil, errors.Errorf("param %q: unknown type %q", p, kind)
		}
		list.Push(v)
	}
	return list.Bytes(), nil
}
