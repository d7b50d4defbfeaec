package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gig-recommender/internal/common/config"
	apperrors "gig-recommender/internal/common/errors"
)

// sheetServer answers initialize, tools/list and one tools/call, then idles.
const sheetServer = `#!/bin/sh
read -r line
printf '%s\n' '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2025-06-18","capabilities":{},"serverInfo":{"name":"sheets","version":"1.0.0"}}}'
read -r line
read -r line
printf '%s\n' '{"jsonrpc":"2.0","id":2,"result":{"tools":[{"name":"excel_describe_sheets","description":"List sheets","inputSchema":{"type":"object","properties":{"fileAbsolutePath":{"type":"string"}},"required":["fileAbsolutePath"]}}]}}'
read -r line
printf '%s\n' '{"jsonrpc":"2.0","id":3,"result":{"content":[{"type":"text","text":"malls"}]}}'
cat > /dev/null
`

const silentServer = `#!/bin/sh
exec sleep 30
`

func writeServer(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "server.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func stdioBinding(command string, initTimeout int) config.ToolBinding {
	return config.ToolBinding{Name: "excel", Transport: config.TransportStdio, Command: command, InitTimeout: initTimeout}
}

func TestConnectMCP_Stdio(t *testing.T) {
	binding := stdioBinding(writeServer(t, sheetServer), 5000)
	r := newTestRegistry(t)

	require.NoError(t, ConnectMCP(context.Background(), binding, StdioDialer, r))
	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "excel_describe_sheets", defs[0].Name)
	assert.Equal(t, "mcp:excel", defs[0].Source)

	out, err := r.Invoke(context.Background(), "excel_describe_sheets", map[string]interface{}{
		"fileAbsolutePath": "/data/dataset.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, "malls", out)

	require.NoError(t, r.Close())
}

func TestConnectMCP_StdioInitTimeout(t *testing.T) {
	binding := stdioBinding(writeServer(t, silentServer), 500)
	r := newTestRegistry(t)

	start := time.Now()
	err := ConnectMCP(context.Background(), binding, StdioDialer, r)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeToolStartupFailed, apperrors.CodeOf(err))
	assert.Less(t, elapsed, 10*time.Second)
	assert.Zero(t, r.Len())
}

func TestStdioSession_CloseStopsProcess(t *testing.T) {
	session, err := StdioDialer(stdioBinding(writeServer(t, silentServer), 500))
	require.NoError(t, err)

	s, ok := session.(*stdioSession)
	require.True(t, ok)

	require.NoError(t, session.Close())
	assert.NotNil(t, s.cmd.ProcessState)
	require.NoError(t, session.Close())
}

func TestStdioDialer_MissingCommand(t *testing.T) {
	_, err := StdioDialer(stdioBinding(filepath.Join(t.TempDir(), "missing"), 500))
	require.Error(t, err)
}
