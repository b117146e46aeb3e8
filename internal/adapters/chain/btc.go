package chain

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
	"github.com/chainvest-service/chainvest_service/pkg/metrics"
)

const btcSearchBatchSize = 50

// BTCConfig configures the Bitcoin oracle
type BTCConfig struct {
	RPCHost          string
	RPCUser          string
	RPCPassword      string
	MinConfirmations int64
	Testnet          bool
}

// BTCOracle probes a Bitcoin node over JSON-RPC. The node must run with
// address indexing enabled (addrindex=1) for searchrawtransactions.
type BTCOracle struct {
	client  *rpcclient.Client
	params  *chaincfg.Params
	minConf int64
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewBTCOracle creates a Bitcoin oracle backed by a full node
func NewBTCOracle(cfg BTCConfig, log *logger.Logger) (*BTCOracle, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPassword,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, domainerrors.Wrap(err, "failed to create bitcoin rpc client")
	}

	params := &chaincfg.MainNetParams
	if cfg.Testnet {
		params = &chaincfg.TestNet3Params
	}

	minConf := cfg.MinConfirmations
	if minConf <= 0 {
		minConf = 1
	}

	settings := gobreaker.Settings{
		Name:        "btc_oracle",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &BTCOracle{
		client:  client,
		params:  params,
		minConf: minConf,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}, nil
}

// FindTransfer scans transactions paying the deposit address for a single
// output of at least minAmount BTC with enough confirmations. Amounts are
// compared in satoshis so float drift in the RPC response cannot flip the
// outcome.
func (o *BTCOracle) FindTransfer(ctx context.Context, address string, minAmount decimal.Decimal) (*Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, domainerrors.OracleUncertainError(err)
	}

	addr, err := btcutil.DecodeAddress(address, o.params)
	if err != nil {
		return nil, domainerrors.ValidationError("address", "invalid bitcoin address: "+err.Error())
	}

	minSats := minAmount.Shift(8).IntPart()

	result, err := o.breaker.Execute(func() (interface{}, error) {
		return o.client.SearchRawTransactionsVerbose(addr, 0, btcSearchBatchSize, true, true, nil)
	})
	if err != nil {
		metrics.RecordOracleProbe("btc", "uncertain")
		o.logger.Warn("bitcoin oracle probe failed", "address", address, "error", err)
		return nil, domainerrors.OracleUncertainError(err)
	}

	txs := result.([]*btcjson.SearchRawTransactionsResult)
	for _, tx := range txs {
		if int64(tx.Confirmations) < o.minConf {
			continue
		}
		sats, ok := o.matchingOutput(tx, address)
		if !ok || sats < minSats {
			continue
		}
		// Normalize the txid so a malformed RPC response cannot claim
		// the unique hash slot with garbage
		hash, err := chainhash.NewHashFromStr(tx.Txid)
		if err != nil {
			o.logger.Warn("bitcoin oracle returned malformed txid", "txid", tx.Txid)
			continue
		}
		metrics.RecordOracleProbe("btc", "found")
		return &Transfer{
			Hash:      hash.String(),
			Amount:    decimal.New(sats, -8),
			BlockTime: time.Unix(tx.Blocktime, 0).UTC(),
		}, nil
	}

	metrics.RecordOracleProbe("btc", "none")
	return nil, nil
}

// matchingOutput returns the largest output paying the address, in satoshis
func (o *BTCOracle) matchingOutput(tx *btcjson.SearchRawTransactionsResult, address string) (int64, bool) {
	var best btcutil.Amount
	var found bool
	for _, vout := range tx.Vout {
		if !voutPaysAddress(vout, address) {
			continue
		}
		amt, err := btcutil.NewAmount(vout.Value)
		if err != nil {
			continue
		}
		if amt > best {
			best = amt
			found = true
		}
	}
	return int64(best), found
}

func voutPaysAddress(vout btcjson.Vout, address string) bool {
	if vout.ScriptPubKey.Address == address {
		return true
	}
	for _, a := range vout.ScriptPubKey.Addresses {
		if a == address {
			return true
		}
	}
	return false
}

// Shutdown closes the underlying RPC connection
func (o *BTCOracle) Shutdown() {
	o.client.Shutdown()
}

var _ Oracle = (*BTCOracle)(nil)
