// Package relayer implements contentcoin.ChainSession against a signing
// relayer that speaks JSON-RPC 2.0.
//
// The relayer signs and pays for deployments with its own account. The coin
// is owned by the address in DeployParams.Owner, normally the creator. It
// answers eth_chainId for the network it signs on and coins_deploy, which
// builds, signs and broadcasts the coin factory call and waits for the
// receipt.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tendant/content-coin/pkg/contentcoin"
)

const deployMethod = "coins_deploy"

// Config for a relayer session
type Config struct {
	URL     string
	Account string // address the relayer signs with
	APIKey  string // sent as a bearer token when set
	Timeout time.Duration
}

// Session is a ChainSession bound to one relayer account.
type Session struct {
	client  *rpc.Client
	account string
}

var _ contentcoin.ChainSession = (*Session)(nil)

// New dials the relayer. No request is made until the first call.
func New(ctx context.Context, config Config) (*Session, error) {
	if strings.TrimSpace(config.URL) == "" {
		return nil, errors.New("relayer URL is required")
	}
	account, err := contentcoin.NormalizeAddress("relayer_account", config.Account)
	if err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	opts := []rpc.ClientOption{rpc.WithHTTPClient(&http.Client{Timeout: config.Timeout})}
	if config.APIKey != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+config.APIKey))
	}
	client, err := rpc.DialOptions(ctx, config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relayer: %w", err)
	}
	return &Session{client: client, account: account}, nil
}

// Close releases the underlying RPC client.
func (s *Session) Close() {
	s.client.Close()
}

func (s *Session) Account() string {
	return s.account
}

func (s *Session) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Uint64
	if err := s.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}
	return int64(id), nil
}

type deployRequest struct {
	Name             string         `json:"name"`
	Symbol           string         `json:"symbol"`
	URI              string         `json:"uri"`
	Owner            common.Address `json:"owner"`
	PayoutRecipient  common.Address `json:"payoutRecipient"`
	PlatformReferrer common.Address `json:"platformReferrer"`
	ChainID          hexutil.Uint64 `json:"chainId"`
}

type deployResponse struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash"`
}

// Deploy asks the relayer to create the coin and returns once the
// transaction has a receipt.
//
// Errors returned by the relayer (a revert or a rejected signature) are
// final. Failing to reach the relayer at all is reported as transient.
func (s *Session) Deploy(ctx context.Context, params contentcoin.DeployParams) (*contentcoin.Deployment, error) {
	owner := params.Owner
	if owner == "" {
		owner = s.account
	}
	req := deployRequest{
		Name:             params.Name,
		Symbol:           params.Symbol,
		URI:              params.URI,
		Owner:            common.HexToAddress(owner),
		PayoutRecipient:  common.HexToAddress(params.PayoutRecipient),
		PlatformReferrer: common.HexToAddress(params.PlatformReferrer),
		ChainID:          hexutil.Uint64(params.ChainID),
	}

	var out deployResponse
	if err := s.client.CallContext(ctx, &out, deployMethod, req); err != nil {
		return nil, &contentcoin.DeploymentError{Err: fmt.Errorf("%s: %w", deployMethod, err), Transient: unreachable(err)}
	}

	if !common.IsHexAddress(out.Address) {
		return nil, &contentcoin.DeploymentError{Err: fmt.Errorf("relayer returned invalid coin address %q", out.Address)}
	}
	hash, err := hexutil.Decode(out.TxHash)
	if err != nil || len(hash) != common.HashLength {
		return nil, &contentcoin.DeploymentError{Err: fmt.Errorf("relayer returned invalid transaction hash %q", out.TxHash)}
	}

	return &contentcoin.Deployment{
		Address: strings.ToLower(common.HexToAddress(out.Address).Hex()),
		TxHash:  strings.ToLower(out.TxHash),
		ChainID: params.ChainID,
	}, nil
}

// unreachable reports whether err happened before the relayer could accept
// the request.
func unreachable(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return false
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
