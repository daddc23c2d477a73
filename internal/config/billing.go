package config

import (
	"errors"
	"fmt"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/storage"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDatabasePath   = "database.path"
	KeyBatchSize      = "storage.batch_size"
	KeySynonyms       = "billing.synonyms"
	KeyCompanySignals = "billing.company_signals"
	KeyRequiredFields = "billing.required_fields"
	KeyDatePolicy     = "billing.date_policy"
	KeyWeekYear       = "billing.week_year"
	KeyDedup          = "billing.dedup"
	KeyHeaderRows     = "billing.header_rows"
	KeyDepartment     = "billing.department"
)

// SetDefaults registers the defaults for every carga key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "~/.config/carga/carga.db")
	v.SetDefault(KeyBatchSize, storage.DefaultBatchSize)
	v.SetDefault(KeyDatePolicy, string(billing.DateReject))
	v.SetDefault(KeyWeekYear, string(billing.WeekYearISO))
	v.SetDefault(KeyDedup, string(billing.DedupAllow))
	v.SetDefault(KeyHeaderRows, 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// DatabasePath returns the expanded SQLite database path.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString(KeyDatabasePath)
	if path == "" {
		path = "~/.config/carga/carga.db"
	}
	return ExpandPath(path)
}

// BatchSize returns the number of records written per transaction.
func BatchSize(v *viper.Viper) (int, error) {
	n := v.GetInt(KeyBatchSize)
	if n == 0 {
		return storage.DefaultBatchSize, nil
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyBatchSize)
	}
	return n, nil
}

// LoadBillingOptions builds pipeline options from the defaults overlaid with
// whatever the configuration sets. Configured synonyms replace the default
// list for that field only.
func LoadBillingOptions(v *viper.Viper) (billing.Options, error) {
	opts := billing.DefaultOptions()
	var errs []error

	if v.IsSet(KeySynonyms) {
		for name, headers := range v.GetStringMapStringSlice(KeySynonyms) {
			field, err := billing.ParseField(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", KeySynonyms, err))
				continue
			}
			if len(headers) > 0 {
				opts.Synonyms[field] = headers
			}
		}
	}

	if signals := v.GetStringSlice(KeyCompanySignals); len(signals) > 0 {
		opts.CompanySignals = signals
	}

	if names := v.GetStringSlice(KeyRequiredFields); len(names) > 0 {
		opts.RequiredFields = opts.RequiredFields[:0]
		for _, name := range names {
			field, err := billing.ParseField(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", KeyRequiredFields, err))
				continue
			}
			opts.RequiredFields = append(opts.RequiredFields, field)
		}
	}

	var err error
	if opts.DatePolicy, err = billing.ParseDatePolicy(v.GetString(KeyDatePolicy)); err != nil {
		errs = append(errs, err)
	}
	if opts.WeekYear, err = billing.ParseWeekYearPolicy(v.GetString(KeyWeekYear)); err != nil {
		errs = append(errs, err)
	}
	if opts.Dedup, err = billing.ParseDedupPolicy(v.GetString(KeyDedup)); err != nil {
		errs = append(errs, err)
	}
	if v.IsSet(KeyHeaderRows) {
		opts.HeaderRows = v.GetInt(KeyHeaderRows)
	}
	opts.Department = v.GetString(KeyDepartment)

	if err := opts.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return billing.Options{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return opts, nil
}
