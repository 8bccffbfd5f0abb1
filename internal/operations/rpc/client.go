package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/cmdrunner"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrStatusUnavailable means the node could not be queried or answered in
// an unexpected shape.
var ErrStatusUnavailable = errors.New("node status unavailable")

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = "8332"
	DefaultTimeout = 3 * time.Second
)

// Options configures a Client. Empty credential fields are filled from
// lynx.conf when ConfPath points at one.
type Options struct {
	CLIPath  string
	ConfPath string
	DataDir  string
	Host     string
	Port     string
	User     string
	Password string
	Timeout  time.Duration
	Runner   cmdrunner.CommandRunner
}

// Client talks to lynxd over JSON-RPC, falling back to lynx-cli
type Client struct {
	opts       Options
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	runner     cmdrunner.CommandRunner
	logger     *logrus.Entry
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     string          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func NewClient(opts Options) (*Client, error) {
	if opts.ConfPath != "" {
		conf, err := LoadConf(opts.ConfPath)
		if err != nil {
			return nil, err
		}
		mergeConf(&opts, conf)
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == "" {
		opts.Port = DefaultPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Runner == nil {
		opts.Runner = cmdrunner.NewCommandsRunner()
	}

	logger := logrus.WithField("component", "rpc")
	c := &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		runner:     opts.Runner,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "lynx-rpc",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
		IsSuccessful: func(err error) bool {
			// the node answered; only transport failures count
			var rerr *rpcError
			return err == nil || errors.As(err, &rerr)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("Circuit breaker state changed from %v to %v", from, to)
		},
	})
	return c, nil
}

// mergeConf fills fields the caller left empty. An explicit host other than
// the loopback default wins over rpcbind.
func mergeConf(opts *Options, conf NodeConf) {
	if opts.User == "" {
		opts.User = conf.User
	}
	if opts.Password == "" {
		opts.Password = conf.Password
	}
	if opts.Port == "" {
		opts.Port = conf.Port
	}
	if (opts.Host == "" || opts.Host == DefaultHost) && conf.Bind != "" {
		opts.Host = conf.Bind
	}
	if conf.DataDir != "" {
		opts.DataDir = conf.DataDir
	}
}

// DataDir returns the effective data directory
func (c *Client) DataDir() string {
	return c.opts.DataDir
}

// ControlAvailable reports whether the lynx-cli binary is installed
func (c *Client) ControlAvailable() bool {
	return common.IsExecutable(c.opts.CLIPath)
}

func (c *Client) hasCredentials() bool {
	return c.opts.User != "" && c.opts.Password != ""
}

func (c *Client) url() string {
	return "http://" + net.JoinHostPort(c.opts.Host, c.opts.Port)
}

// Call invokes method and returns the raw JSON result. HTTP is tried first
// when credentials are known; lynx-cli is used otherwise or on failure.
func (c *Client) Call(ctx context.Context, method string, params ...string) (json.RawMessage, error) {
	if c.hasCredentials() {
		result, err := c.callHTTP(ctx, method, params)
		if err == nil {
			return result, nil
		}
		var rerr *rpcError
		if errors.As(err, &rerr) {
			return nil, err
		}
		c.logger.WithError(err).Debugf("HTTP call %s failed, falling back to lynx-cli", method)
	}
	return c.callCLI(ctx, method, params)
}

func (c *Client) callHTTP(ctx context.Context, method string, params []string) (json.RawMessage, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doHTTP(ctx, method, params)
	})
	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *Client) doHTTP(ctx context.Context, method string, params []string) (json.RawMessage, error) {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.opts.User, c.opts.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
	if decodeErr == nil && decoded.Error != nil {
		return nil, decoded.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc request returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", decodeErr)
	}
	return decoded.Result, nil
}

func (c *Client) callCLI(ctx context.Context, method string, params []string) (json.RawMessage, error) {
	if !c.ControlAvailable() {
		return nil, fmt.Errorf("%s is not executable", c.opts.CLIPath)
	}

	var args []string
	if c.opts.DataDir != "" {
		args = append(args, "-datadir="+c.opts.DataDir)
	}
	args = append(args, method)
	args = append(args, params...)

	ctx, cancel := context.WithTimeout(ctx, 2*c.opts.Timeout)
	defer cancel()

	out, err := c.runner.RunStdout(ctx, c.opts.CLIPath, args...)
	if err != nil {
		return nil, fmt.Errorf("lynx-cli %s failed: %w", method, err)
	}
	out = bytes.TrimSpace(out)
	if json.Valid(out) {
		return json.RawMessage(out), nil
	}
	// plain text answers such as a bare hash are returned as a JSON string
	quoted, _ := json.Marshal(string(out))
	return json.RawMessage(quoted), nil
}

// BlockCount returns the current block height
func (c *Client) BlockCount(ctx context.Context) (int64, error) {
	raw, err := c.Call(ctx, "getblockcount")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	var height int64
	if err := json.Unmarshal(raw, &height); err != nil {
		return 0, fmt.Errorf("%w: unexpected block count %s", ErrStatusUnavailable, strings.TrimSpace(string(raw)))
	}
	return height, nil
}

// BackupWallet asks the node to copy its wallet to path
func (c *Client) BackupWallet(ctx context.Context, path string) error {
	if _, err := c.Call(ctx, "backupwallet", path); err != nil {
		return fmt.Errorf("backupwallet failed: %w", err)
	}
	return nil
}
