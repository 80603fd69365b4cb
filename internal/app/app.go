// Package app wires the services shared by the HTTP server and the command
// line tool.
package app

import (
	"github.com/stwalsh4118/addressmap/internal/config"
	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/geocoder"
	"github.com/stwalsh4118/addressmap/internal/history"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/services"
	"github.com/stwalsh4118/addressmap/internal/streetparser"
)

// Services holds the service layer built from one configuration.
type Services struct {
	Addresses services.AddressService
	Imports   services.ImportService
	Parcels   services.ParcelService
}

// New builds the services on store. Geocoding is disabled when no geocoder
// URL is configured.
func New(cfg *config.Config, store repository.Store, log *logger.Logger) *Services {
	tracker := history.NewTracker()
	d := dedup.New(streetparser.NewParser(nil), tracker, dedup.Options{
		Strict: cfg.Address.StrictParsing,
	})

	var geo geocoder.Geocoder
	if cfg.Geocoder.URL != "" {
		geo = geocoder.NewClient(geocoder.Config{
			BaseURL:   cfg.Geocoder.URL,
			UserAgent: cfg.Geocoder.UserAgent,
			Timeout:   cfg.Geocoder.Timeout,
		})
	}

	return &Services{
		Addresses: services.NewAddressService(store, d, tracker, geo, services.AddressOptions{
			PageLength:     cfg.Address.PageLength,
			MaxSuggestions: cfg.Address.MaxSuggestions,
		}, log),
		Imports: services.NewImportService(store, d, cfg.Address.ImportColumns, cfg.Address.PageLength, log),
		Parcels: services.NewParcelService(store, log),
	}
}
