package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/carga/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		errs         []error
		wantIs       error
		name         string
		wantAttempts int
		wantErr      bool
	}{
		{name: "first try", errs: []error{nil}, wantAttempts: 1},
		{name: "succeeds on retry", errs: []error{errors.New("flaky"), nil}, wantAttempts: 2},
		{name: "exhausted", errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}, wantAttempts: 3, wantErr: true, wantIs: ErrMaxRetries},
		{name: "permanent stops", errs: []error{Permanent(ErrInvalidConfig)}, wantAttempts: 1, wantErr: true, wantIs: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := WithRetry(context.Background(), "write Resumen", func() error {
				err := tt.errs[attempts]
				attempts++
				return err
			}, fastRetry)

			assert.Equal(t, tt.wantAttempts, attempts)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestWithRetry_ExhaustedKeepsLastFailure(t *testing.T) {
	last := errors.New("503 backend error")
	attempts := 0
	err := WithRetry(context.Background(), "write Conductores", func() error {
		attempts++
		if attempts == fastRetry.MaxAttempts {
			return last
		}
		return errors.New("timeout")
	}, fastRetry)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "write Conductores")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestWithRetry_RateLimitWaitsMaxDelay(t *testing.T) {
	opts := service.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 30 * time.Millisecond, Multiplier: 2}

	start := time.Now()
	attempts := 0
	err := WithRetry(context.Background(), "prepare spreadsheet", func() error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("sheets: %w", ErrRateLimit)
		}
		return nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.GreaterOrEqual(t, time.Since(start), opts.MaxDelay)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}

	attempts := 0
	err := WithRetry(ctx, "write Resumen", func() error {
		attempts++
		cancel()
		return errors.New("boom")
	}, opts)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("sheets: %w", ErrRateLimit)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("503"), Retryable: true}))
	assert.False(t, IsRetryable(Permanent(errors.New("400"))))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Nil(t, Permanent(nil))
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not read the spreadsheet", ErrNoRecords)
	assert.Equal(t, "could not read the spreadsheet: no billing records", err.Error())
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Equal(t, "could not read the spreadsheet", UserMessage(fmt.Errorf("import: %w", err)))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
	assert.Equal(t, "only message", NewUserError("only message", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetupLoggerTo_JSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelInfo, "json"))

	LogDebug("hidden", nil)
	LogInfo("upload stored", Fields{"written": 3})
	LogError(errors.New("disk full"), "chunk failed", Fields{"chunk": 2})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "upload stored", first["msg"])
	assert.InDelta(t, 3, first["written"], 0)

	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "disk full", second["error"])
	assert.Equal(t, "ERROR", second["level"])
}
