package main

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hervehildenbrand/bgp-baseline/pkg/location"
	"github.com/hervehildenbrand/bgp-baseline/pkg/logging"
)

// newResolver builds the AS-country resolver from configuration.
// Priority: delegation directory > CSV file > database > null.
// The returned cleanup stops any background refresh.
func newResolver() (location.Resolver, func()) {
	log := logging.L()

	if dir := viper.GetString("delegated_dir"); dir != "" {
		resolver, err := location.NewDelegationResolver(dir)
		if err != nil {
			log.Warn("failed to load delegation files", zap.String("dir", dir), zap.Error(err))
		} else {
			return resolver, resolver.Stop
		}
	}

	if path := viper.GetString("asn_data"); path != "" {
		resolver, err := location.NewFileResolver(path)
		if err != nil {
			log.Warn("failed to load ASN data", zap.String("path", path), zap.Error(err))
		} else {
			return resolver, resolver.Stop
		}
	}

	if databaseURL := viper.GetString("database"); databaseURL != "" {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			log.Warn("ASN resolver database connection failed", zap.Error(err))
		} else {
			resolver := location.NewDatabaseResolver(db, "asn_countries")
			resolver.Start()
			return resolver, func() {
				resolver.Stop()
				db.Close()
			}
		}
	}

	log.Info("no ASN resolver configured, country codes will be \"ZZ\"")
	resolver := location.NewNullResolver()
	return resolver, resolver.Stop
}
