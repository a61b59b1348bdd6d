package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// explorerServer serves body for every request and records the last query.
func explorerServer(t *testing.T, status int, body string, lastQuery *atomic.Value, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastQuery != nil {
			lastQuery.Store(r.URL.Query())
		}
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okTxListResponse = `{
  "status": "1",
  "message": "OK",
  "result": [
    {"hash":"0xbbb","from":"0x7701a3be6842720c08834e2d9e9507b5a28c0096","to":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
     "value":"150000000000000000","timeStamp":"1700000200","blockNumber":"19234567","gasUsed":"21000",
     "gasPrice":"20000000000","isError":"0","functionName":"transfer(address _to, uint256 _value)","input":"0xa9059cbb00"},
    {"hash":"0xaaa","from":"0xdac17f958d2ee523a2206206994597c13d831ec7","to":"",
     "value":"0","timeStamp":"1700000100","blockNumber":"19234500","gasUsed":"52000",
     "gasPrice":"18000000000","isError":"1","functionName":"","input":"0x6080"}
  ]
}`

func newTestExplorer(baseURL string) *Explorer {
	return NewExplorer(ExplorerConfig{
		BaseURL: baseURL,
		APIKey:  "TESTKEY",
		ChainID: 1,
		Timeout: 5 * time.Second,
	}, nil)
}

// ---------------------------------------------------------------------------
// parseTxList: response validation
// ---------------------------------------------------------------------------

func TestParseTxListSuccessKeepsOrder(t *testing.T) {
	txs, err := parseTxList(http.StatusOK, []byte(okTxListResponse))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0xbbb", txs[0].Hash)
	assert.Equal(t, "0xaaa", txs[1].Hash)
	assert.Equal(t, "150000000000000000", txs[0].Value)
	assert.Equal(t, "1700000200", txs[0].TimeStamp)
}

func TestParseTxListNoTransactionsIsSuccess(t *testing.T) {
	txs, err := parseTxList(http.StatusOK, []byte(`{"status":"0","message":"No transactions found","result":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestParseTxListRateLimit(t *testing.T) {
	_, err := parseTxList(http.StatusOK, []byte(`{"status":"0","message":"NOTOK","result":"Rate limit exceeded"}`))
	require.Error(t, err)
	assert.Equal(t, "Rate limit exceeded", err.Error())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestParseTxListStatusZeroMessageFallback(t *testing.T) {
	_, err := parseTxList(http.StatusOK, []byte(`{"status":"0","message":"Invalid API Key","result":[]}`))
	require.Error(t, err)
	assert.Equal(t, "Invalid API Key", err.Error())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestParseTxListStatusZeroEmptyResultString(t *testing.T) {
	_, err := parseTxList(http.StatusOK, []byte(`{"status":"0","message":"NOTOK","result":""}`))
	require.Error(t, err)
	assert.Equal(t, "NOTOK", err.Error())
}

func TestParseTxListStatusZeroGenericFallback(t *testing.T) {
	_, err := parseTxList(http.StatusOK, []byte(`{"status":"0"}`))
	require.Error(t, err)
	assert.Equal(t, "Etherscan API error", err.Error())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestParseTxListOtherShapes(t *testing.T) {
	cases := map[string]struct {
		body string
		msg  string
	}{
		"status 1 with string result": {`{"status":"1","message":"OK","result":"weird"}`, "OK"},
		"missing status":              {`{"result":[]}`, "Failed to fetch transactions"},
		"unknown status":              {`{"status":"2","message":"Maintenance","result":[]}`, "Maintenance"},
		"empty object":                {`{}`, "Failed to fetch transactions"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseTxList(http.StatusOK, []byte(tc.body))
			require.Error(t, err)
			assert.Equal(t, tc.msg, err.Error())
			assert.Equal(t, KindMalformed, KindOf(err))
		})
	}
}

func TestParseTxListNumericStatus(t *testing.T) {
	txs, err := parseTxList(http.StatusOK, []byte(`{"status":1,"message":"OK","result":[]}`))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestParseTxListBadJSON(t *testing.T) {
	_, err := parseTxList(http.StatusOK, []byte(`<html>oops</html>`))
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestParseTxListBadJSONWithHTTPError(t *testing.T) {
	_, err := parseTxList(http.StatusBadGateway, []byte(`<html>502</html>`))
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), "502")
}

func TestParseTxListBadRecord(t *testing.T) {
	_, err := parseTxList(http.StatusOK, []byte(`{"status":"1","message":"OK","result":[{"hash":42}]}`))
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}

// ---------------------------------------------------------------------------
// Explorer.Transactions over HTTP
// ---------------------------------------------------------------------------

func TestTransactionsSendsExpectedQuery(t *testing.T) {
	var q atomic.Value
	srv := explorerServer(t, http.StatusOK, okTxListResponse, &q, nil)

	txs, err := newTestExplorer(srv.URL).Transactions(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	got := q.Load().(url.Values)
	want := map[string]string{
		"chainid":    "1",
		"module":     "account",
		"action":     "txlist",
		"address":    testAddr,
		"startblock": "0",
		"endblock":   "99999999",
		"page":       "1",
		"offset":     "10",
		"sort":       "desc",
		"apikey":     "TESTKEY",
	}
	for k, v := range want {
		assert.Equal(t, v, got.Get(k), "query param %s", k)
	}
}

func TestTransactionsBaseURLWithQuery(t *testing.T) {
	var q atomic.Value
	srv := explorerServer(t, http.StatusOK, okTxListResponse, &q, nil)

	_, err := newTestExplorer(srv.URL+"/api?foo=bar").Transactions(context.Background(), testAddr)
	require.NoError(t, err)
	got := q.Load().(url.Values)
	assert.Equal(t, "bar", got.Get("foo"))
	assert.Equal(t, "txlist", got.Get("action"))
}

func TestTransactionsUpstreamError(t *testing.T) {
	srv := explorerServer(t, http.StatusOK, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`, nil, nil)

	_, err := newTestExplorer(srv.URL).Transactions(context.Background(), testAddr)
	require.Error(t, err)
	assert.Equal(t, "Max rate limit reached", err.Error())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestTransactionsEmptyAddressMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := explorerServer(t, http.StatusOK, okTxListResponse, nil, &calls)

	_, err := newTestExplorer(srv.URL).Transactions(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Zero(t, calls.Load())
}

func TestTransactionsConnectionRefused(t *testing.T) {
	_, err := newTestExplorer("http://127.0.0.1:19994/api").Transactions(context.Background(), testAddr)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestTransactionsCancelledWhileRateLimited(t *testing.T) {
	srv := explorerServer(t, http.StatusOK, okTxListResponse, nil, nil)
	e := NewExplorer(ExplorerConfig{BaseURL: srv.URL, ChainID: 1, RateLimit: 0.01, RateBurst: 1}, nil)

	_, err := e.Transactions(context.Background(), testAddr) // consumes the burst
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = e.Transactions(ctx, testAddr)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

// ---------------------------------------------------------------------------
// Transaction helpers
// ---------------------------------------------------------------------------

func TestTransactionHelpers(t *testing.T) {
	txs, err := parseTxList(http.StatusOK, []byte(okTxListResponse))
	require.NoError(t, err)

	send, deploy := txs[0], txs[1]

	assert.Equal(t, "transfer", send.Method())
	assert.Equal(t, "0.15", send.ValueETH())
	assert.False(t, send.Failed())
	assert.False(t, send.IsContractCreation())
	assert.Equal(t, int64(1700000200), send.Time().Unix())

	assert.Equal(t, "deploy", deploy.Method())
	assert.True(t, deploy.Failed())
	assert.True(t, deploy.IsContractCreation())
	assert.Equal(t, "0", deploy.ValueETH())
}

func TestTransactionTimeUnparseable(t *testing.T) {
	assert.True(t, Transaction{TimeStamp: "soon"}.Time().IsZero())
}

func TestTransactionMethodFallsBackToSelector(t *testing.T) {
	tx := Transaction{To: "0xabc", Input: "0x095ea7b3" + "00"}
	assert.Equal(t, "approve", tx.Method())
}

// ---------------------------------------------------------------------------
// decodeMethod
// ---------------------------------------------------------------------------

func TestDecodeMethodPlainSend(t *testing.T) {
	assert.Equal(t, "transfer", decodeMethod(""))
	assert.Equal(t, "transfer", decodeMethod("0x"))
}

func TestDecodeMethodShortInput(t *testing.T) {
	assert.Equal(t, "call", decodeMethod("0xabcd"))
}

func TestDecodeMethodUnknownSelector(t *testing.T) {
	assert.Equal(t, "0xdeadbeef", decodeMethod("0xdeadbeef"+"00"))
}

func TestDecodeMethodUpperCaseInput(t *testing.T) {
	assert.Equal(t, "transfer", decodeMethod("0xA9059CBB"+"00"))
}

func TestDecodeMethodAllKnownSelectors(t *testing.T) {
	for selector, name := range knownMethods {
		assert.Equal(t, name, decodeMethod(selector+"00000000"), "selector %s", selector)
	}
}
