// Package vm owns the call stack every contract invocation, top-level or
// nested, goes through.
package vm

import (
	"context"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wavesenterprise/wevm/internal/api"
	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/internal/runtime"
	"github.com/wavesenterprise/wevm/types"
)

// Frame is one in-flight contract invocation.
type Frame struct {
	ContractID []byte
	Bytecode   []byte
	Nonce      uint64
}

// PaymentID identifies the payments attached to the invocation.
func (f Frame) PaymentID() []byte {
	return codec.PaymentID(f.ContractID, f.Nonce)
}

// Limits bound every frame the stack runs.
type Limits struct {
	MemoryInitialPages uint32
	MemoryMaximumPages uint32
	MaxFrames          int
	Fuel               uint64
}

// CallStack tracks nested invocations for one top-level call. It is not
// safe for concurrent use; every top-level invocation gets its own.
type CallStack struct {
	first  Frame
	frames []Frame
	nonce  uint64
	limits Limits
	ledger types.Ledger
	cfg    api.Config
	depth  int
}

var _ runtime.Stack = (*CallStack)(nil)

// NewCallStack creates a stack whose first frame is the top-level
// invocation of contractID.
func NewCallStack(contractID, bytecode []byte, limits Limits, ledger types.Ledger, cfg api.Config) *CallStack {
	if limits.MaxFrames <= 0 {
		limits.MaxFrames = types.DefaultVMConfig().Engine.MaxFrames
	}
	return &CallStack{
		first:  Frame{ContractID: contractID, Bytecode: bytecode},
		limits: limits,
		ledger: ledger,
		cfg:    cfg.WithDefaults(),
	}
}

func (s *CallStack) Ledger() types.Ledger { return s.ledger }

// TopFrame returns the last pushed frame, or the first frame when nothing
// is pushed.
func (s *CallStack) TopFrame() Frame {
	if len(s.frames) == 0 {
		return s.first
	}
	return s.frames[len(s.frames)-1]
}

// Depth is the number of pushed frames.
func (s *CallStack) Depth() int { return len(s.frames) }

// MaxDepth is the deepest the stack has been.
func (s *CallStack) MaxDepth() int { return s.depth }

func (s *CallStack) ContractID() []byte { return s.TopFrame().ContractID }

func (s *CallStack) PaymentID() []byte { return s.TopFrame().PaymentID() }

// CallerID returns the contract id of the frame below the top one.
func (s *CallStack) CallerID() ([]byte, bool) {
	switch n := len(s.frames); n {
	case 0:
		return nil, false
	case 1:
		return s.first.ContractID, true
	default:
		return s.frames[n-2].ContractID, true
	}
}

// NextNonce returns a nonce never handed out before by this stack.
func (s *CallStack) NextNonce() uint64 {
	s.nonce++
	return s.nonce
}

// Run executes funcName of the first frame.
func (s *CallStack) Run(ctx context.Context, funcName string, params []byte) ([]runtime.Result, error) {
	return s.execute(ctx, s.first, funcName, params)
}

// PushAndRun pushes a frame for contractID, runs funcName in it and pops the
// frame whatever the outcome.
func (s *CallStack) PushAndRun(ctx context.Context, contractID, bytecode []byte, nonce uint64, funcName string, params []byte) ([]runtime.Result, error) {
	if len(s.frames) >= s.limits.MaxFrames {
		return nil, errors.Wrapf(types.StackOverflow, "%d frames", len(s.frames))
	}
	frame := Frame{ContractID: contractID, Bytecode: bytecode, Nonce: nonce}
	s.frames = append(s.frames, frame)
	if len(s.frames) > s.depth {
		s.depth = len(s.frames)
		s.cfg.Metrics.ObserveDepth(s.depth)
	}
	s.cfg.Logger.Debug("frame pushed",
		zap.String("contract", base58.Encode(contractID)),
		zap.String("func", funcName),
		zap.Int("depth", len(s.frames)))
	defer func() {
		s.frames = s.frames[:len(s.frames)-1]
		s.cfg.Logger.Debug("frame popped", zap.Int("depth", len(s.frames)))
	}()

	return s.execute(ctx, frame, funcName, params)
}

func (s *CallStack) execute(ctx context.Context, frame Frame, funcName string, params []byte) ([]runtime.Result, error) {
	exe, err := api.NewExecutable(ctx, frame.Bytecode,
		s.limits.MemoryInitialPages, s.limits.MemoryMaximumPages, s.limits.Fuel, s.cfg)
	if err != nil {
		return nil, err
	}
	return exe.Execute(ctx, s, funcName, params)
}
