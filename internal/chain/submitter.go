package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/lendmon/lendmon/internal/domain"
)

// TxIntent describes a transaction before signing.
type TxIntent struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// SignerFunc signs a prepared transaction. Keys never enter this package.
type SignerFunc func(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)

// Sender is the subset of ethclient.Client the submitter depends on.
type Sender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Submitter signs and broadcasts transactions. It never retries on its own:
// resubmitting a value-transferring transaction risks a double spend, so
// retries must be an explicit user action.
type Submitter struct {
	client Sender
	from   common.Address
	sign   SignerFunc
}

// NewSubmitter creates a submitter for the given account.
func NewSubmitter(client Sender, from common.Address, sign SignerFunc) *Submitter {
	return &Submitter{client: client, from: from, sign: sign}
}

// SignAndSend prepares, signs and broadcasts the intent, returning the
// transaction hash as reference.
func (s *Submitter) SignAndSend(ctx context.Context, intent TxIntent) (string, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", errors.Wrapf(domain.ErrExternalFailure, "fetch nonce: %s", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrapf(domain.ErrExternalFailure, "suggest gas price: %s", err)
	}

	value := intent.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &intent.To,
		Value:    value,
		Gas:      intent.GasLimit,
		GasPrice: gasPrice,
		Data:     intent.Data,
	})

	signed, err := s.sign(ctx, tx)
	if err != nil {
		return "", errors.Wrap(err, "sign transaction")
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return "", errors.Wrapf(domain.ErrExternalFailure, "broadcast: %s", err)
	}

	return signed.Hash().Hex(), nil
}
