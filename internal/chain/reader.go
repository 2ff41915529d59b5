// Package chain is the thin read/submit layer over the lending pool and
// token contracts. The pool remains the authoritative system; everything
// here is read calls and signed-transaction plumbing.
package chain

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/lendmon/lendmon/internal/domain"
	"github.com/lendmon/lendmon/pkg/retrier"
)

// Selectors of the read calls this layer issues. Aave-style pool ABI.
var (
	// getUserAccountData(address)
	selGetUserAccountData = common.Hex2Bytes("bf92857c")
	// getReserveData(address)
	selGetReserveData = common.Hex2Bytes("35ea6a75")
	// balanceOf(address)
	selBalanceOf = common.Hex2Bytes("70a08231")
)

const wordSize = 32

// maxUint256 signals "no debt" in the pool's health factor field.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Caller is the subset of ethclient.Client the reader depends on.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// AccountData is the decoded result of the pool's getUserAccountData call.
// Monetary values are in the pool's base currency (USD, 8 decimals on the
// wire); ratios arrive in basis points and are normalized to [0,1].
type AccountData struct {
	TotalCollateral      decimal.Decimal
	TotalDebt            decimal.Decimal
	AvailableBorrows     decimal.Decimal
	LiquidationThreshold decimal.Decimal
	LTV                  decimal.Decimal
	HealthFactor         domain.HealthFactor
}

// ReserveData is the subset of the pool's per-reserve state the engine uses.
// Rates arrive in ray (1e27) and are normalized to APR percent.
type ReserveData struct {
	SupplyRate       decimal.Decimal
	BorrowRate       decimal.Decimal
	ATokenAddress    common.Address
	DebtTokenAddress common.Address
}

// Reader issues read-only calls against the lending pool and its tokens.
// Calls are idempotent and retried on transient RPC failures; the submit
// path deliberately is not.
type Reader struct {
	client Caller
	pool   common.Address
	retry  retrier.Policy
}

// NewReader creates a reader bound to the pool contract.
func NewReader(client Caller, pool common.Address) *Reader {
	return &Reader{client: client, pool: pool, retry: retrier.Default()}
}

// ChainID returns the connected network id.
func (r *Reader) ChainID(ctx context.Context) (int64, error) {
	id, err := r.client.ChainID(ctx)
	if err != nil {
		return 0, errors.Wrap(domain.ErrExternalFailure, err.Error())
	}
	return id.Int64(), nil
}

// UserAccountData fetches the pool's aggregated view of an account.
func (r *Reader) UserAccountData(ctx context.Context, account common.Address) (AccountData, error) {
	out, err := r.call(ctx, r.pool, packAddressCall(selGetUserAccountData, account))
	if err != nil {
		return AccountData{}, errors.Wrap(err, "getUserAccountData")
	}
	if len(out) < 6*wordSize {
		return AccountData{}, errors.Errorf("getUserAccountData returned %d bytes, want %d", len(out), 6*wordSize)
	}

	hfRaw := word(out, 5)
	hf := domain.InfiniteHealthFactor()
	if hfRaw.Cmp(maxUint256) != 0 {
		hf = domain.NewHealthFactor(decimal.NewFromBigInt(hfRaw, -18))
	}

	return AccountData{
		TotalCollateral:      decimal.NewFromBigInt(word(out, 0), -8),
		TotalDebt:            decimal.NewFromBigInt(word(out, 1), -8),
		AvailableBorrows:     decimal.NewFromBigInt(word(out, 2), -8),
		LiquidationThreshold: decimal.NewFromBigInt(word(out, 3), -4),
		LTV:                  decimal.NewFromBigInt(word(out, 4), -4),
		HealthFactor:         hf,
	}, nil
}

// ReserveData fetches current rates and token addresses for one reserve.
func (r *Reader) ReserveData(ctx context.Context, asset common.Address) (ReserveData, error) {
	out, err := r.call(ctx, r.pool, packAddressCall(selGetReserveData, asset))
	if err != nil {
		return ReserveData{}, errors.Wrap(err, "getReserveData")
	}
	if len(out) < 11*wordSize {
		return ReserveData{}, errors.Errorf("getReserveData returned %d bytes, want at least %d", len(out), 11*wordSize)
	}

	// Layout of the pool's ReserveData struct: configuration, liquidityIndex,
	// currentLiquidityRate, variableBorrowIndex, currentVariableBorrowRate,
	// currentStableBorrowRate, lastUpdateTimestamp, id, aToken,
	// stableDebtToken, variableDebtToken, ...
	return ReserveData{
		SupplyRate:       rayToPercent(word(out, 2)),
		BorrowRate:       rayToPercent(word(out, 4)),
		ATokenAddress:    wordToAddress(out, 8),
		DebtTokenAddress: wordToAddress(out, 10),
	}, nil
}

// BalanceOf fetches the ERC-20 balance of account on token, scaled by
// decimals into whole units.
func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address, decimals int) (decimal.Decimal, error) {
	out, err := r.call(ctx, token, packAddressCall(selBalanceOf, account))
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "balanceOf")
	}
	if len(out) < wordSize {
		return decimal.Decimal{}, errors.Errorf("balanceOf returned %d bytes, want %d", len(out), wordSize)
	}
	return decimal.NewFromBigInt(word(out, 0), -int32(decimals)), nil
}

func (r *Reader) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := retrier.DoWithData(r.retry, ctx, func(ctx context.Context) ([]byte, error) {
		return r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, errors.Wrap(domain.ErrExternalFailure, err.Error())
	}
	return out, nil
}

// packAddressCall builds calldata for a single-address-argument call.
func packAddressCall(selector []byte, addr common.Address) []byte {
	data := make([]byte, 0, len(selector)+wordSize)
	data = append(data, selector...)
	data = append(data, common.LeftPadBytes(addr.Bytes(), wordSize)...)
	return data
}

func word(out []byte, i int) *big.Int {
	return new(big.Int).SetBytes(out[i*wordSize : (i+1)*wordSize])
}

func wordToAddress(out []byte, i int) common.Address {
	return common.BytesToAddress(out[i*wordSize+12 : (i+1)*wordSize])
}

var rayUnit = decimal.New(1, 27)

// rayToPercent converts a ray-scaled rate (1e27 == 1.0) to percent.
func rayToPercent(ray *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(ray, 0).Div(rayUnit).Mul(decimal.NewFromInt(100))
}
