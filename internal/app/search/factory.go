package search

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunebox/internal/infra/config"
	"github.com/osa030/tunebox/internal/infra/saavn"
	"github.com/osa030/tunebox/internal/infra/spotify"
)

// SaavnProviderConfig holds the settings of a "saavn" provider.
type SaavnProviderConfig struct {
	BaseURL    string `mapstructure:"base_url" default:"https://saavn.sumit.co" validate:"required,url"`
	TimeoutSec int    `mapstructure:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
}

// SpotifyProviderConfig holds the settings of a "spotify" provider.
type SpotifyProviderConfig struct {
	Market string `mapstructure:"market" validate:"omitempty,len=2"`
}

// NewProviderChainFromConfig creates a provider chain from configuration.
func NewProviderChainFromConfig(ctx context.Context, cfg *config.Config) (*ProviderChain, error) {
	if len(cfg.Catalog.Providers) == 0 {
		return nil, errors.New("no catalog providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Catalog.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating catalog provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "saavn":
			provider, err = newSaavnProvider(pcfg.Settings)

		case "spotify":
			provider, err = newSpotifyProvider(ctx, cfg.Spotify, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered catalog provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewProviderChain(providers), nil
}

func newSaavnProvider(settings map[string]any) (Provider, error) {
	var pc SaavnProviderConfig
	if err := decodeSettings(settings, &pc); err != nil {
		return nil, err
	}
	return saavn.New(saavn.Config{
		BaseURL: pc.BaseURL,
		Timeout: time.Duration(pc.TimeoutSec) * time.Second,
	})
}

func newSpotifyProvider(ctx context.Context, creds config.SpotifyConfig, settings map[string]any) (Provider, error) {
	var pc SpotifyProviderConfig
	if err := decodeSettings(settings, &pc); err != nil {
		return nil, err
	}
	market := pc.Market
	if market == "" {
		market = creds.Market
	}
	return spotify.New(ctx, spotify.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RefreshToken: creds.RefreshToken,
		Market:       market,
	})
}

// decodeSettings decodes, defaults and validates provider settings into out.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
