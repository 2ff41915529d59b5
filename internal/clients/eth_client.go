package clients

import (
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// NewEthClient dials the Ethereum JSON-RPC endpoint used by the chain read
// and submit layers.
func NewEthClient(rpcURL string) (*ethclient.Client, error) {
	if rpcURL == "" {
		return nil, errors.New("rpc url is required")
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial ethereum rpc")
	}
	return client, nil
}
