package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gig-recommender/internal/common/config"
	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/llm"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "fastfood"))
	require.NoError(t, f.SetSheetRow("fastfood", "A1", &[]interface{}{"name", "rating"}))
	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// stubModelServer answers the gathering stage directly and the recommendation
// stage with a fixed list.
func stubModelServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		content := "1. Meghana Foods\n2. Truffles\n3. Empire\n\nAll three are rated above 4.3."
		if len(req.Tools) > 0 {
			content = "Meghana Foods 4.5, Truffles 4.4, Empire 4.3"
		}
		assert.NoError(t, json.NewEncoder(w).Encode(llm.ChatCompletionResponse{
			Choices: []llm.Choice{{Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: content}}},
		}))
	}))
}

func writeCLIConfig(t *testing.T, modelURL, datasetPath string) string {
	t.Helper()
	body := fmt.Sprintf(`model:
  base_url: %s
dataset:
  path: %s
  sheets: [fastfood]
tools:
  - name: excel
    transport: builtin
logging:
  level: error
observability:
  service_name: gigagent-test
`, modelURL, datasetPath)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI("", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev\n", out)
}

func TestAsk(t *testing.T) {
	srv := stubModelServer(t)
	defer srv.Close()
	t.Setenv(config.EnvApifyToken, "apify-test-token")
	cfgPath := writeCLIConfig(t, srv.URL, writeWorkbook(t))

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"positional query", "", []string{"-f", cfgPath, "ask", "best", "fast", "food", "in", "Jayanagar"}},
		{"query from stdin", "best fast food in Jayanagar\n", []string{"-f", cfgPath, "ask"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(tt.stdin, tt.args...)
			require.Equal(t, 0, code, errOut)
			assert.Equal(t, "1. Meghana Foods\n2. Truffles\n3. Empire\n\nAll three are rated above 4.3.\n", out)
		})
	}
}

func TestAsk_Failures(t *testing.T) {
	srv := stubModelServer(t)
	defer srv.Close()
	cfgPath := writeCLIConfig(t, srv.URL, writeWorkbook(t))

	t.Run("missing token", func(t *testing.T) {
		t.Setenv(config.EnvApifyToken, "")
		code, out, errOut := runCLI("", "-f", cfgPath, "ask", "anything")
		assert.Equal(t, 1, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "MISSING_CREDENTIAL: APIFY_TOKEN missing")
	})

	t.Run("empty query", func(t *testing.T) {
		t.Setenv(config.EnvApifyToken, "tok")
		code, _, errOut := runCLI("   ", "-f", cfgPath, "ask")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "INVALID_QUERY")
	})
}

func TestRecommendationFrom(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]interface{}
		want    string
		wantErr bool
	}{
		{name: "text", vars: map[string]interface{}{"recommendation": "1. A\n2. B\n3. C"}, want: "1. A\n2. B\n3. C"},
		{name: "missing", vars: map[string]interface{}{"query": "coffee"}, wantErr: true},
		{name: "not a string", vars: map[string]interface{}{"recommendation": map[string]interface{}{"text": "x"}}, wantErr: true},
		{name: "blank", vars: map[string]interface{}{"recommendation": "  "}, wantErr: true},
		{name: "nil variables", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recommendationFrom(tt.vars)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeModelResponseMalformed, apperrors.CodeOf(err))
				assert.Contains(t, err.Error(), "without a recommendation")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTools(t *testing.T) {
	t.Setenv(config.EnvApifyToken, "tok")
	cfgPath := writeCLIConfig(t, "http://127.0.0.1:1", writeWorkbook(t))

	code, out, errOut := runCLI("", "-f", cfgPath, "tools")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "bindings:")
	assert.Contains(t, out, "transport: builtin")
	assert.Contains(t, out, "name: excel_describe_sheets")
	assert.Contains(t, out, "name: excel_read_sheet")
	assert.Contains(t, out, "source: builtin:excel")
}

func TestHelp(t *testing.T) {
	code, out, _ := runCLI("", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "ask")
	assert.Contains(t, out, "tools")
}
