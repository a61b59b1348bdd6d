package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is the JSON-RPC client used for balances and chain head data.
type Client struct {
	url string
	eth *ethclient.Client
}

// Balance holds a native balance result.
type Balance struct {
	Wei *big.Int
	ETH string // exact decimal, no trailing zeros
}

// Dial creates a client for url. HTTP endpoints are not contacted until the
// first call.
func Dial(ctx context.Context, url string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &Client{url: url, eth: ec}, nil
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }

// BalanceAt returns the latest-block native balance of address.
func (c *Client) BalanceAt(ctx context.Context, address string) (*Balance, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	if err := ValidateAddress(address); err != nil {
		return nil, &FetchError{Kind: KindMalformed, Op: "balance", Msg: err.Error(), Err: err}
	}

	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, classifyRPC("balance", err)
	}
	return &Balance{Wei: wei, ETH: WeiToETH(wei)}, nil
}

// GasPrice returns the node's suggested legacy gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	p, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classifyRPC("gas price", err)
	}
	return p, nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, classifyRPC("block number", err)
	}
	return n, nil
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, classifyRPC("chain id", err)
	}
	return id.Int64(), nil
}

// Ping measures round-trip latency with eth_blockNumber.
func (c *Client) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	latency = time.Since(start)
	return latency, blockNum, err
}
