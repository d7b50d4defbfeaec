package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	rpcbase "github.com/viant/jsonrpc/transport/client/base"
	mcpschema "github.com/viant/mcp-protocol/schema"
	mcpclient "github.com/viant/mcp/client"

	"gig-recommender/internal/common/config"
)

const (
	stdioClientVersion = "0.1.0"
	stdioGracePeriod   = 2 * time.Second
	stdioMaxLine       = 16 * 1024 * 1024
)

// stdioSession is an MCP client talking JSON-RPC over the stdin and stdout
// of a child process it owns.
type stdioSession struct {
	client *mcpclient.Client
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	done   chan struct{}
	once   sync.Once
}

// StdioDialer launches binding.Command as a child process speaking MCP over
// stdio. The child inherits the process environment, including APIFY_TOKEN.
// No handshake happens here; ConnectMCP runs Initialize under the binding's
// init timeout.
func StdioDialer(binding config.ToolBinding) (Session, error) {
	cmd := exec.Command(binding.Command, binding.Args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binding.Command, err)
	}

	rpc := &rpcbase.Client{
		Transport:  &pipeTransport{w: stdin},
		Handler:    &rpcbase.Handler{},
		RoundTrips: transport.NewRoundTrips(20),
		RunTimeout: 15 * time.Minute,
		Logger:     jsonrpc.DefaultLogger,
	}
	s := &stdioSession{
		client: mcpclient.New(binding.Name, stdioClientVersion, rpc),
		cmd:    cmd,
		stdin:  stdin,
		done:   make(chan struct{}),
	}
	go s.read(stdout, rpc, binding.Name)
	return s, nil
}

func (s *stdioSession) read(stdout io.Reader, rpc *rpcbase.Client, name string) {
	defer close(s.done)
	ctx := context.WithValue(context.Background(), jsonrpc.SessionKey, "stdio")
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), stdioMaxLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rpc.HandleMessage(ctx, append([]byte(nil), line...))
	}
	rpc.SetError(fmt.Errorf("tool server %s closed its output", name))
}

func (s *stdioSession) Initialize(ctx context.Context, options ...mcpclient.RequestOption) (*mcpschema.InitializeResult, error) {
	return s.client.Initialize(ctx, options...)
}

func (s *stdioSession) ListTools(ctx context.Context, cursor *string, options ...mcpclient.RequestOption) (*mcpschema.ListToolsResult, error) {
	return s.client.ListTools(ctx, cursor, options...)
}

func (s *stdioSession) CallTool(ctx context.Context, params *mcpschema.CallToolRequestParams, options ...mcpclient.RequestOption) (*mcpschema.CallToolResult, error) {
	return s.client.CallTool(ctx, params, options...)
}

// Close stops the client, closes the child's stdin and kills the child if it
// has not exited within the grace period. It is safe to call more than once.
func (s *stdioSession) Close() error {
	var err error
	s.once.Do(func() {
		s.client.Close()
		_ = s.stdin.Close()

		select {
		case <-s.done:
		case <-time.After(stdioGracePeriod):
		}
		if killErr := s.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			err = fmt.Errorf("kill tool server: %w", killErr)
		}
		_ = s.cmd.Wait()
	})
	return err
}

type pipeTransport struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *pipeTransport) SendData(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.w.Write(data)
	return err
}
