package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/solana"
)

// Token2022ProgramID owns Token-2022 mints, which share the base mint layout.
const Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"

// FallbackSupply is assumed when no supply source answers.
var FallbackSupply = decimal.NewFromInt(1_000_000_000)

// Supply is a human-scaled total supply.
type Supply struct {
	Value    decimal.Decimal
	Fallback bool
}

// SupplyOracle resolves the total supply of an SPL mint.
type SupplyOracle struct {
	rpc     solana.RPCClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewSupplyOracle creates a SupplyOracle. timeout bounds each RPC call.
func NewSupplyOracle(rpc solana.RPCClient, timeout time.Duration, logger *zap.Logger) *SupplyOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplyOracle{rpc: rpc, timeout: timeout, logger: logger.Named("supply")}
}

// GetTotalSupply asks getTokenSupply first, then parses the mint account,
// and finally falls back to FallbackSupply with Fallback set.
func (o *SupplyOracle) GetTotalSupply(ctx context.Context, mint string) Supply {
	v, err := o.fromTokenSupply(ctx, mint)
	if err == nil {
		return Supply{Value: v}
	}
	o.logger.Warn("getTokenSupply failed, reading mint account", zap.String("mint", mint), zap.Error(err))

	v, err = o.fromMintAccount(ctx, mint)
	if err == nil {
		return Supply{Value: v}
	}
	o.logger.Warn("supply unavailable, using fallback",
		zap.String("mint", mint),
		zap.String("fallback", FallbackSupply.String()),
		zap.Error(err))
	observability.RecordOracleDegradation("supply")
	return Supply{Value: FallbackSupply, Fallback: true}
}

func (o *SupplyOracle) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

func (o *SupplyOracle) fromTokenSupply(ctx context.Context, mint string) (decimal.Decimal, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	s, err := o.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return decimal.Zero, err
	}
	if s.UIAmountString != "" {
		v, err := decimal.NewFromString(s.UIAmountString)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse uiAmountString %q: %w", s.UIAmountString, err)
		}
		return v, nil
	}
	raw, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s.Amount, err)
	}
	return raw.Shift(-int32(s.Decimals)), nil
}

func (o *SupplyOracle) fromMintAccount(ctx context.Context, mint string) (decimal.Decimal, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	acc, err := o.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, fmt.Errorf("mint account %s not found", mint)
	}
	if acc.Owner != solana.TokenProgramID && acc.Owner != Token2022ProgramID {
		return decimal.Zero, fmt.Errorf("account %s owned by %s is not a mint", mint, acc.Owner)
	}

	m, err := solana.ParseMint(acc.Data)
	if err != nil {
		return decimal.Zero, err
	}
	if !m.IsInitialized {
		return decimal.Zero, fmt.Errorf("mint %s not initialized", mint)
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(m.Supply), -int32(m.Decimals)), nil
}
