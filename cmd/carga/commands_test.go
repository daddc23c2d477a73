package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/service"
	"github.com/Veraticus/carga/internal/sheets"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const februaryCSV = `F.Carga,Conductor,Nomb.Cliente,Euros
2026-02-13,Juan Pérez,Cliente A,150.50
2026-02-16,Ana López,Cliente B,49.50
2026-02-16,Ana López,,
`

// env is an isolated home, config file and database for one test.
type env struct {
	t      *testing.T
	dir    string
	config string
	db     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\n"), 0o600))

	return &env{t: t, dir: dir, config: cfg, db: filepath.Join(dir, "carga.db")}
}

func (e *env) file(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// configure replaces the config file contents.
func (e *env) configure(yaml string) {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(e.config, []byte(yaml), 0o600))
}

// run executes carga with a fresh command tree and global config and returns stdout.
func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	out, _, err := e.runSplit(args...)
	return out, err
}

// runSplit is run with stderr returned separately.
func (e *env) runSplit(args ...string) (string, string, error) {
	e.t.Helper()
	viper.Reset()
	e.t.Cleanup(viper.Reset)

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// useMockWriter routes exports to a mock for the rest of the test.
func useMockWriter(t *testing.T) *sheets.MockWriter {
	t.Helper()
	mock := sheets.NewMockWriter()
	orig := newReportWriter
	newReportWriter = func(context.Context, sheets.Config) (service.ReportWriter, error) {
		return mock, nil
	}
	t.Cleanup(func() { newReportWriter = orig })
	return mock
}

func clearSheetsEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN", "GOOGLE_SHEETS_SPREADSHEET_ID",
	} {
		t.Setenv(name, "")
	}
}

const sheetsConfigYAML = `logging:
  level: error
sheets:
  service_account_path: /nonexistent/service-account.json
`

func TestImportThenSummary(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	out, err := e.run("import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Accepted:   2")
	assert.Contains(t, out, "Rejected:   1")

	out, err = e.run("summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Juan Pérez")
	assert.Contains(t, out, "Ana López")
	assert.Contains(t, out, "200,00 €")
	assert.Contains(t, out, "feb 2026")
	assert.Contains(t, out, "Semana 7 - 2026")
	assert.Contains(t, out, "Semana 8 - 2026")

	out, err = e.run("summary", "--week", "Semana 8 - 2026")
	require.NoError(t, err)
	assert.Contains(t, out, "49,50 €")
	assert.NotContains(t, out, "Juan Pérez")
}

func TestImport_ProgressGoesToStderr(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	out, errOut, err := e.runSplit("import", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Saving febrero.csv")
	assert.NotContains(t, out, "Saving febrero.csv")
	assert.Contains(t, out, "Accepted:   2")
}

func TestImport_DryRunStoresNothing(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	out, err := e.run("import", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Accepted:   2")

	out, err = e.run("summary")
	require.NoError(t, err)
	assert.Contains(t, out, "No records match.")
}

func TestImport_MergeSkipsStoredRows(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	_, err := e.run("import", path)
	require.NoError(t, err)
	_, err = e.run("import", "--dedup", "merge", path)
	require.NoError(t, err)

	out, err := e.run("summary")
	require.NoError(t, err)
	assert.Contains(t, out, "200,00 €")
	assert.NotContains(t, out, "400,00 €")
}

func TestImport_RejectsUnknownFormat(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.pdf", "%PDF")

	_, err := e.run("import", path)
	require.Error(t, err)
}

func TestDeleteMonth(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	_, err := e.run("import", path)
	require.NoError(t, err)

	out, err := e.run("delete", "--month", "mar 2026", "--yes", "--no-checkpoint")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to delete")

	out, err = e.run("delete", "--month", "feb 2026", "--yes", "--no-checkpoint")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 records")

	out, err = e.run("summary")
	require.NoError(t, err)
	assert.Contains(t, out, "No records match.")
}

func TestDelete_DeclinedPromptKeepsRecords(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	_, err := e.run("import", path)
	require.NoError(t, err)

	// Empty stdin answers no.
	out, err := e.run("delete", "--all", "--no-checkpoint")
	require.NoError(t, err)
	assert.Contains(t, out, "Deletion canceled.")

	out, err = e.run("summary")
	require.NoError(t, err)
	assert.Contains(t, out, "200,00 €")
}

func TestDelete_RequiresSelection(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("delete", "--yes")
	require.Error(t, err)

	_, err = e.run("delete", "--month", "feb 2026", "--all")
	require.Error(t, err)
}

func TestCheckpointRestoreAfterDelete(t *testing.T) {
	e := newEnv(t)
	path := e.file("febrero.csv", februaryCSV)

	_, err := e.run("import", path)
	require.NoError(t, err)

	out, err := e.run("checkpoint", "create", "--tag", "before-reset")
	require.NoError(t, err)
	assert.Contains(t, out, "before-reset")

	out, err = e.run("delete", "--all", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoint")

	out, err = e.run("checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "before-reset")

	_, err = e.run("checkpoint", "restore", "before-reset", "--yes")
	require.NoError(t, err)

	out, err = e.run("summary")
	require.NoError(t, err)
	assert.Contains(t, out, "200,00 €")
}

func TestExport_WritesFilteredSummary(t *testing.T) {
	e := newEnv(t)
	clearSheetsEnv(t)
	path := e.file("febrero.csv", februaryCSV)
	_, err := e.run("import", "--department", "Norte", path)
	require.NoError(t, err)

	e.configure(sheetsConfigYAML)
	mock := useMockWriter(t)

	out, err := e.run("export", "--week", "Semana 7 - 2026", "--department", "Norte")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 records")

	calls := mock.GetWriteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Summary.Records)
	assert.True(t, decimal.RequireFromString("150.5").Equal(calls[0].Summary.Total))
	assert.Contains(t, calls[0].Summary.ByDriver, "Juan Pérez")
	assert.Equal(t, service.ReportPeriod{Label: "Semana 7 - 2026", Department: "Norte"}, calls[0].Period)
}

func TestExport_Errors(t *testing.T) {
	e := newEnv(t)
	clearSheetsEnv(t)
	path := e.file("febrero.csv", februaryCSV)
	_, err := e.run("import", path)
	require.NoError(t, err)

	t.Run("not configured", func(t *testing.T) {
		mock := useMockWriter(t)
		_, err := e.run("export")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrMissingConfig)
		assert.Empty(t, mock.GetWriteCalls())
	})

	e.configure(sheetsConfigYAML)

	t.Run("nothing selected", func(t *testing.T) {
		mock := useMockWriter(t)
		_, err := e.run("export", "--month", "mar 2026")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrNoRecords)
		assert.Empty(t, mock.GetWriteCalls())
	})

	t.Run("writer fails", func(t *testing.T) {
		mock := useMockWriter(t)
		mock.SetWriteError(common.ErrRateLimit)
		_, err := e.run("export")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrExportFailed)
		assert.ErrorIs(t, err, common.ErrRateLimit)
		assert.Len(t, mock.GetWriteCalls(), 1)
	})
}

func TestMigrateStatus(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("migrate", "--status")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("version")
	require.NoError(t, err)
	assert.Equal(t, "carga dev\n", out)
}
