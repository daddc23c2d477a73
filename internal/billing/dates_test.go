package billing

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		value    any
		want     time.Time
		name     string
		wantRule DateRule
		wantErr  bool
	}{
		{name: "numeric serial", value: 46066.0, want: day(2026, 2, 13), wantRule: RuleNumericSerial},
		{name: "integer serial", value: 45658, want: day(2025, 1, 1), wantRule: RuleNumericSerial},
		{name: "unix epoch serial", value: float64(unixEpochSerial), want: day(1970, 1, 1), wantRule: RuleNumericSerial},
		{name: "serial after leap bug", value: 61.0, want: day(1900, 3, 1), wantRule: RuleNumericSerial},
		{name: "fractional serial rounds", value: 46065.5, want: day(2026, 2, 13), wantRule: RuleNumericSerial},
		{name: "fractional serial below half", value: 46066.49, want: day(2026, 2, 13), wantRule: RuleNumericSerial},
		{name: "json number", value: json.Number("46066"), want: day(2026, 2, 13), wantRule: RuleNumericSerial},
		{name: "decimal", value: decimal.NewFromInt(46066), want: day(2026, 2, 13), wantRule: RuleNumericSerial},
		{name: "numeric text", value: "46066", want: day(2026, 2, 13), wantRule: RuleNumericText},
		{name: "numeric text with spaces", value: " 46066 ", want: day(2026, 2, 13), wantRule: RuleNumericText},
		{name: "iso date", value: "2026-02-13", want: day(2026, 2, 13), wantRule: RuleISOText},
		{name: "iso timestamp keeps written date", value: "2026-02-13T23:30:00-05:00", want: day(2026, 2, 13), wantRule: RuleISOText},
		{name: "year first slashes", value: "2026/02/13", want: day(2026, 2, 13), wantRule: RuleISOText},
		{name: "english month", value: "Feb 13, 2026", want: day(2026, 2, 13), wantRule: RuleISOText},
		{name: "spanish day first", value: "13/02/2026", want: day(2026, 2, 13), wantRule: RuleSlashDelimited},
		{name: "ambiguous slashes are day first", value: "01/02/2026", want: day(2026, 2, 1), wantRule: RuleSlashDelimited},
		{name: "single digit parts", value: "1/1/2026", want: day(2026, 1, 1), wantRule: RuleSlashDelimited},
		{name: "two digit year", value: "13/02/26", want: day(2026, 2, 13), wantRule: RuleSlashDelimited},
		{name: "trailing time", value: "13/02/2026 08:30", want: day(2026, 2, 13), wantRule: RuleSlashDelimited},
		{name: "leap day", value: "29/02/2024", want: day(2024, 2, 29), wantRule: RuleSlashDelimited},
		{name: "day out of range", value: "31/02/2026", wantErr: true},
		{name: "month out of range", value: "13/13/2026", wantErr: true},
		{name: "two slashes only", value: "13/02", wantErr: true},
		{name: "four parts", value: "13/02/2026/1", wantErr: true},
		{name: "garbage text", value: "mañana", wantErr: true},
		{name: "empty text", value: "", wantErr: true},
		{name: "nil", value: nil, wantErr: true},
		{name: "bool", value: true, wantErr: true},
		{name: "serial beyond year 9999", value: 3000000.0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule, err := NormalizeDate(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnrecognizedDate)
				assert.Equal(t, RuleUnrecognized, rule)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestNormalizeDate_NumericAndTextSerialsAgree(t *testing.T) {
	for serial := 1; serial <= 80000; serial += 97 {
		fromNumber, _, err := NormalizeDate(float64(serial))
		require.NoError(t, err)

		fromText, _, err := NormalizeDate(strconv.Itoa(serial))
		require.NoError(t, err)

		assert.Equal(t, fromNumber, fromText, "serial %d", serial)
	}
}

func TestDateRules_Precedence(t *testing.T) {
	assert.Equal(t, []DateRule{RuleNumericSerial, RuleNumericText, RuleISOText, RuleSlashDelimited}, DateRules())
}

func TestDateToSerial_RoundTrip(t *testing.T) {
	for _, d := range []time.Time{day(1970, 1, 1), day(2026, 2, 13), day(1900, 3, 1), day(2099, 12, 31)} {
		got, ok := SerialToDate(float64(DateToSerial(d)))
		require.True(t, ok)
		assert.Equal(t, d, got)
	}
	assert.Equal(t, 46066, DateToSerial(day(2026, 2, 13)))
}

func monthOf(m int) time.Month {
	return time.Month(m)
}
