package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/lendmon/lendmon/internal/domain"
)

type fakeSender struct {
	nonce    uint64
	gasPrice *big.Int
	sendErr  error
	sent     *types.Transaction
}

func (f *fakeSender) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeSender) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeSender) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = tx
	return nil
}

func passthroughSigner(_ context.Context, tx *types.Transaction) (*types.Transaction, error) {
	return tx, nil
}

func TestSubmitter_SignAndSend(t *testing.T) {
	sender := &fakeSender{nonce: 7, gasPrice: big.NewInt(1_000_000_000)}
	from := common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	submitter := NewSubmitter(sender, from, passthroughSigner)

	intent := TxIntent{
		To:       common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"),
		Data:     []byte{0x01, 0x02},
		GasLimit: 250_000,
	}

	ref, err := submitter.SignAndSend(context.Background(), intent)
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	require.NotNil(t, sender.sent)
	require.Equal(t, uint64(7), sender.sent.Nonce())
	require.Equal(t, intent.To, *sender.sent.To())
	require.Equal(t, uint64(250_000), sender.sent.Gas())
	require.True(t, sender.sent.Value().Sign() == 0, "nil value must default to zero")
	require.Equal(t, sender.sent.Hash().Hex(), ref)
}

func TestSubmitter_BroadcastFailure(t *testing.T) {
	sender := &fakeSender{gasPrice: big.NewInt(1), sendErr: errors.New("nonce too low")}
	submitter := NewSubmitter(sender, common.Address{}, passthroughSigner)

	_, err := submitter.SignAndSend(context.Background(), TxIntent{To: common.HexToAddress("0x1")})
	require.True(t, errors.Is(err, domain.ErrExternalFailure),
		"broadcast failures must map to ErrExternalFailure, not trigger a retry")
	require.Nil(t, sender.sent)
}
