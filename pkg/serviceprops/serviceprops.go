// Package serviceprops implements the Service Properties & Account
// Store (spec §4.H): a small per-account JSON document keyed in the
// same BadgerDB handle the extent catalog opens, under its own key
// prefix, following a get-or-default, update-by-decode-mutate-encode
// pattern.
package serviceprops

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/azstorecore/core/pkg/extent"
)

const prefixProperties = "p:"

// DefaultServiceVersion is the API version reported until an account
// explicitly sets one via Upsert.
const DefaultServiceVersion = "2021-08-06"

func keyProperties(account string) []byte {
	return []byte(prefixProperties + account)
}

// CORSRule is a single Cross-Origin Resource Sharing rule.
type CORSRule struct {
	AllowedOrigins  []string `json:"allowedOrigins"`
	AllowedMethods  []string `json:"allowedMethods"`
	AllowedHeaders  []string `json:"allowedHeaders"`
	ExposedHeaders  []string `json:"exposedHeaders"`
	MaxAgeInSeconds int      `json:"maxAgeInSeconds"`
}

// MetricsProperties configures hour or minute metrics aggregation.
type MetricsProperties struct {
	Enabled       bool `json:"enabled"`
	IncludeAPIs   bool `json:"includeApis"`
	RetentionDays int  `json:"retentionDays"`
}

// LoggingProperties configures storage analytics logging.
type LoggingProperties struct {
	Read          bool `json:"read"`
	Write         bool `json:"write"`
	Delete        bool `json:"delete"`
	RetentionDays int  `json:"retentionDays"`
}

// StaticWebsiteProperties configures the static website feature.
type StaticWebsiteProperties struct {
	Enabled          bool   `json:"enabled"`
	IndexDocument    string `json:"indexDocument"`
	ErrorDocument404 string `json:"errorDocument404Path"`
}

// ServiceProperties is the full per-account document.
type ServiceProperties struct {
	Account               string                  `json:"account"`
	Cors                  []CORSRule              `json:"cors"`
	DefaultServiceVersion string                  `json:"defaultServiceVersion"`
	HourMetrics           MetricsProperties       `json:"hourMetrics"`
	MinuteMetrics         MetricsProperties       `json:"minuteMetrics"`
	Logging               LoggingProperties       `json:"logging"`
	StaticWebsite         StaticWebsiteProperties `json:"staticWebsite"`
}

// defaults returns the document an account gets before ever calling
// Upsert: empty CORS, both metrics disabled, logging read/write/delete
// enabled, static website disabled, service version the emulator
// default (spec §8 scenario 5).
func defaults(account string) ServiceProperties {
	return ServiceProperties{
		Account:               account,
		Cors:                  nil,
		DefaultServiceVersion: DefaultServiceVersion,
		HourMetrics:           MetricsProperties{Enabled: false},
		MinuteMetrics:         MetricsProperties{Enabled: false},
		Logging:               LoggingProperties{Read: true, Write: true, Delete: true},
		StaticWebsite:         StaticWebsiteProperties{Enabled: false},
	}
}

// Patch carries only the top-level properties an Upsert call supplies.
// A nil field means "unsupplied, preserve the existing value"; a
// non-nil field (including a non-nil but empty Cors slice) means
// "supplied, replace". This gives the CORS "explicit empty list
// replaces, absent field preserves" rule from spec §4.H for free, and
// applies the same rule uniformly to every other top-level property.
type Patch struct {
	Cors                  *[]CORSRule
	DefaultServiceVersion *string
	HourMetrics           *MetricsProperties
	MinuteMetrics         *MetricsProperties
	Logging               *LoggingProperties
	StaticWebsite         *StaticWebsiteProperties
}

func apply(existing ServiceProperties, patch Patch) ServiceProperties {
	if patch.Cors != nil {
		existing.Cors = *patch.Cors
	}
	if patch.DefaultServiceVersion != nil {
		existing.DefaultServiceVersion = *patch.DefaultServiceVersion
	}
	if patch.HourMetrics != nil {
		existing.HourMetrics = *patch.HourMetrics
	}
	if patch.MinuteMetrics != nil {
		existing.MinuteMetrics = *patch.MinuteMetrics
	}
	if patch.Logging != nil {
		existing.Logging = *patch.Logging
	}
	if patch.StaticWebsite != nil {
		existing.StaticWebsite = *patch.StaticWebsite
	}
	return existing
}

// Store is the BadgerDB-backed Service Properties & Account Store.
type Store struct {
	db *badger.DB
}

// Open wraps an existing BadgerDB handle (typically catalog.Catalog's,
// via Catalog.DB) with the properties store's own key prefix.
func Open(db *badger.DB) *Store {
	return &Store{db: db}
}

// Get returns the document for account, or the documented default if
// none has ever been stored.
func (s *Store) Get(ctx context.Context, account string) (ServiceProperties, error) {
	if err := ctx.Err(); err != nil {
		return ServiceProperties{}, extent.NewOperationCancelledError(err)
	}

	var props ServiceProperties
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyProperties(account))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if jsonErr := json.Unmarshal(val, &props); jsonErr != nil {
				return fmt.Errorf("serviceprops: decode: %w", jsonErr)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return ServiceProperties{}, err
	}
	if !found {
		return defaults(account), nil
	}
	return props, nil
}

// Upsert merges patch into the account's existing document (or the
// default document, for a first call) and persists the result.
func (s *Store) Upsert(ctx context.Context, account string, patch Patch) (ServiceProperties, error) {
	if err := ctx.Err(); err != nil {
		return ServiceProperties{}, extent.NewOperationCancelledError(err)
	}

	existing, err := s.Get(ctx, account)
	if err != nil {
		return ServiceProperties{}, err
	}

	merged := apply(existing, patch)
	merged.Account = account

	encoded, err := json.Marshal(merged)
	if err != nil {
		return ServiceProperties{}, fmt.Errorf("serviceprops: encode: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyProperties(account), encoded)
	})
	if err != nil {
		return ServiceProperties{}, err
	}
	return merged, nil
}
