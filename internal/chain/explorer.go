package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Explorer API constants. Etherscan overloads status "0" for both an empty
// history and a real error, told apart only by the message text.
const (
	noTransactionsMessage = "No transactions found"
	fallbackUpstreamMsg   = "Etherscan API error"
	fallbackMalformedMsg  = "Failed to fetch transactions"

	txPageSize   = 10
	txEndBlock   = 99999999
	opTxHistory  = "transactions"
	defaultTxTTL = 12 * time.Second
)

// explorerResponse is the raw Etherscan-compatible API envelope.
// Every field stays raw: result is an array on success and a plain string on
// failure, and some proxies send status as a number.
type explorerResponse struct {
	Status  jsoniter.RawMessage `json:"status"`
	Message jsoniter.RawMessage `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

// Transaction is one txlist record, stored exactly as the explorer sent it.
// An empty To marks a contract creation.
type Transaction struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to,omitempty"`
	Value        string `json:"value"`
	TimeStamp    string `json:"timeStamp"`
	BlockNumber  string `json:"blockNumber"`
	GasUsed      string `json:"gasUsed"`
	GasPrice     string `json:"gasPrice"`
	IsError      string `json:"isError"`
	FunctionName string `json:"functionName,omitempty"`
	Input        string `json:"input,omitempty"`
}

// IsContractCreation reports whether the transaction deployed a contract.
func (t Transaction) IsContractCreation() bool { return t.To == "" }

// Failed reports whether the explorer flagged the transaction as reverted.
func (t Transaction) Failed() bool { return t.IsError == "1" }

// ValueETH returns the transferred value as an exact ETH decimal.
func (t Transaction) ValueETH() string {
	wei, err := ParseWei(t.Value)
	if err != nil {
		return "0"
	}
	return WeiToETH(wei)
}

// Time converts the unix-seconds timestamp. Zero time when unparseable.
func (t Transaction) Time() time.Time {
	sec, err := strconv.ParseInt(t.TimeStamp, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Method returns a short method label: the explorer's functionName without
// its argument list, else a decoded 4-byte selector.
func (t Transaction) Method() string {
	if t.IsContractCreation() {
		return "deploy"
	}
	if name, _, ok := strings.Cut(t.FunctionName, "("); ok && name != "" {
		return name
	}
	return decodeMethod(t.Input)
}

// knownMethods maps 4-byte selectors to human-readable names.
var knownMethods = map[string]string{
	"0xa9059cbb": "transfer",
	"0x095ea7b3": "approve",
	"0x23b872dd": "transferFrom",
	"0x7ff36ab5": "swapExactETHForTokens",
	"0x18cbafe5": "swapExactTokensForETH",
	"0x38ed1739": "swapExactTokensForTokens",
	"0x414bf389": "exactInputSingle",
	"0xac9650d8": "multicall",
	"0x5ae401dc": "multicall",
	"0x3593564c": "execute",
	"0xd0e30db0": "deposit",
	"0x2e1a7d4d": "withdraw",
	"0x6a627842": "mint",
	"0x42966c68": "burn",
	"0x4e71d92d": "claim",
	"0xa694fc3a": "stake",
}

// decodeMethod returns a method name from calldata input: "transfer" for a
// plain ETH send, a known name, or the raw selector.
func decodeMethod(input string) string {
	if input == "" || input == "0x" {
		return "transfer"
	}
	clean := strings.TrimPrefix(input, "0x")
	if len(clean) < 8 {
		return "call"
	}
	selector := "0x" + strings.ToLower(clean[:8])
	if name, ok := knownMethods[selector]; ok {
		return name
	}
	return selector
}

// ExplorerConfig configures an Explorer.
type ExplorerConfig struct {
	BaseURL   string        // e.g. https://api.etherscan.io/v2/api
	APIKey    string        // may be empty; Etherscan then answers with a status "0" error
	ChainID   int64         // sent as chainid
	Timeout   time.Duration // per request when ctx has no deadline
	RateLimit float64       // requests per second; <= 0 disables limiting
	RateBurst int
}

// Explorer fetches transaction history from an Etherscan-compatible API.
type Explorer struct {
	cfg     ExplorerConfig
	client  *fasthttp.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewExplorer creates an explorer client. logger may be nil.
func NewExplorer(cfg ExplorerConfig, logger *zap.Logger) *Explorer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTxTTL
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Explorer{
		cfg:     cfg,
		client:  &fasthttp.Client{Name: "walletdash"},
		limiter: rate.NewLimiter(limit, cfg.RateBurst),
		logger:  logger.Named("explorer"),
	}
}

// Transactions returns the ten most recent transactions of address, newest
// first, in the order the API returned them.
func (e *Explorer) Transactions(ctx context.Context, address string) ([]Transaction, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, networkError(opTxHistory, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(e.requestURL(address))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	e.logger.Debug("requesting transaction history", zap.String("address", address))

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = e.client.DoDeadline(req, resp, deadline)
	} else {
		err = e.client.DoTimeout(req, resp, e.cfg.Timeout)
	}
	if err != nil {
		e.logger.Warn("explorer request failed", zap.String("address", address), zap.Error(err))
		return nil, networkError(opTxHistory, err)
	}

	txs, err := parseTxList(resp.StatusCode(), resp.Body())
	if err != nil {
		e.logger.Warn("explorer returned an error",
			zap.String("address", address),
			zap.Int("status", resp.StatusCode()),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err))
		return nil, err
	}
	e.logger.Debug("transaction history fetched", zap.String("address", address), zap.Int("count", len(txs)))
	return txs, nil
}

// requestURL builds the txlist query. The API key is appended last so it is
// easy to strip from anything that echoes the URL.
func (e *Explorer) requestURL(address string) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	args.Set("chainid", strconv.FormatInt(e.cfg.ChainID, 10))
	args.Set("module", "account")
	args.Set("action", "txlist")
	args.Set("address", address)
	args.Set("startblock", "0")
	args.Set("endblock", strconv.Itoa(txEndBlock))
	args.Set("page", "1")
	args.Set("offset", strconv.Itoa(txPageSize))
	args.Set("sort", "desc")
	args.Set("apikey", e.cfg.APIKey)

	// Use "&" when BaseURL already carries a query string.
	sep := "?"
	if strings.Contains(e.cfg.BaseURL, "?") {
		sep = "&"
	}
	return e.cfg.BaseURL + sep + args.String()
}

// parseTxList validates an explorer response body.
func parseTxList(httpStatus int, body []byte) ([]Transaction, error) {
	var env explorerResponse
	if err := json.Unmarshal(body, &env); err != nil {
		if httpStatus != fasthttp.StatusOK {
			return nil, networkError(opTxHistory, fmt.Errorf("explorer returned HTTP %d", httpStatus))
		}
		return nil, malformedError(opTxHistory, fmt.Sprintf("parsing explorer response: %v", err), err)
	}

	status, _ := rawString(env.Status)
	message, _ := rawString(env.Message)

	switch {
	case status == "1" && isJSONArray(env.Result):
		txs := []Transaction{}
		if err := json.Unmarshal(env.Result, &txs); err != nil {
			return nil, malformedError(opTxHistory, fmt.Sprintf("parsing explorer tx list: %v", err), err)
		}
		return txs, nil

	case status == "0" && message == noTransactionsMessage:
		return []Transaction{}, nil

	case status == "0":
		if reason, ok := rawString(env.Result); ok && reason != "" {
			return nil, upstreamError(opTxHistory, reason)
		}
		if message != "" {
			return nil, upstreamError(opTxHistory, message)
		}
		return nil, upstreamError(opTxHistory, fallbackUpstreamMsg)

	default:
		if message == "" {
			message = fallbackMalformedMsg
		}
		return nil, malformedError(opTxHistory, message, nil)
	}
}

// rawString decodes raw as a JSON string. Numbers are accepted as their
// literal text so a numeric status still compares equal to "1".
func rawString(raw jsoniter.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n big.Int
	if _, ok := n.SetString(string(raw), 10); ok {
		return n.String(), false
	}
	return "", false
}

func isJSONArray(raw jsoniter.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
