package chain

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
	"github.com/chainvest-service/chainvest_service/pkg/metrics"
)

const erc20ABIJSON = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("failed to parse ERC-20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// ERC20Config configures an ERC-20 token oracle
type ERC20Config struct {
	RPCURL           string
	TokenAddress     string
	TokenDecimals    int32
	LookbackBlocks   uint64
	MinConfirmations uint64
}

// ERC20Oracle probes an Ethereum node for token Transfer events paying a
// deposit address. Used for USDT but works for any ERC-20 contract.
type ERC20Oracle struct {
	client   *ethclient.Client
	token    common.Address
	decimals int32
	lookback uint64
	minConf  uint64
	breaker  *gobreaker.CircuitBreaker
	logger   *logger.Logger
}

// NewERC20Oracle creates an oracle for a single token contract
func NewERC20Oracle(ctx context.Context, cfg ERC20Config, log *logger.Logger) (*ERC20Oracle, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, domainerrors.Wrap(err, "failed to dial ethereum rpc")
	}

	lookback := cfg.LookbackBlocks
	if lookback == 0 {
		lookback = 10000
	}
	decimals := cfg.TokenDecimals
	if decimals == 0 {
		decimals = 6
	}

	settings := gobreaker.Settings{
		Name:        "erc20_oracle",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &ERC20Oracle{
		client:   client,
		token:    common.HexToAddress(cfg.TokenAddress),
		decimals: decimals,
		lookback: lookback,
		minConf:  cfg.MinConfirmations,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   log,
	}, nil
}

// FindTransfer filters Transfer logs targeting the deposit address within
// the lookback window. Amounts are compared in the token's base units so
// the on-chain uint256 is never coerced through a float.
func (o *ERC20Oracle) FindTransfer(ctx context.Context, address string, minAmount decimal.Decimal) (*Transfer, error) {
	if !common.IsHexAddress(address) {
		return nil, domainerrors.ValidationError("address", "invalid ethereum address")
	}
	recipient := common.HexToAddress(address)
	minBase := minAmount.Shift(o.decimals).BigInt()

	result, err := o.breaker.Execute(func() (interface{}, error) {
		return o.filterTransfers(ctx, recipient)
	})
	if err != nil {
		metrics.RecordOracleProbe("erc20", "uncertain")
		o.logger.Warn("erc20 oracle probe failed", "address", address, "error", err)
		return nil, domainerrors.OracleUncertainError(err)
	}

	logs := result.([]types.Log)
	for _, lg := range logs {
		if lg.Removed || len(lg.Data) == 0 {
			continue
		}
		value := new(big.Int).SetBytes(lg.Data)
		if value.Cmp(minBase) < 0 {
			continue
		}
		blockTime, err := o.blockTime(ctx, lg.BlockNumber)
		if err != nil {
			metrics.RecordOracleProbe("erc20", "uncertain")
			return nil, domainerrors.OracleUncertainError(err)
		}
		metrics.RecordOracleProbe("erc20", "found")
		return &Transfer{
			Hash:      lg.TxHash.Hex(),
			Amount:    decimal.NewFromBigInt(value, -o.decimals),
			BlockTime: blockTime,
		}, nil
	}

	metrics.RecordOracleProbe("erc20", "none")
	return nil, nil
}

func (o *ERC20Oracle) filterTransfers(ctx context.Context, recipient common.Address) ([]types.Log, error) {
	head, err := o.client.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	// Leave out the newest blocks until they have enough confirmations
	toBlock := head
	if o.minConf > 0 && head > o.minConf {
		toBlock = head - o.minConf
	}
	var fromBlock uint64
	if toBlock > o.lookback {
		fromBlock = toBlock - o.lookback
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{o.token},
		Topics: [][]common.Hash{
			{erc20ABI.Events["Transfer"].ID},
			nil,
			{common.BytesToHash(recipient.Bytes())},
		},
	}

	return o.client.FilterLogs(ctx, query)
}

func (o *ERC20Oracle) blockTime(ctx context.Context, number uint64) (time.Time, error) {
	header, err := o.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// Close releases the underlying RPC connection
func (o *ERC20Oracle) Close() {
	o.client.Close()
}

var _ Oracle = (*ERC20Oracle)(nil)
