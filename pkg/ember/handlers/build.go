package handlers

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yourusername/ember/pkg/ember/config"
	"github.com/yourusername/ember/pkg/ember/http1"
)

// New creates the handler for one configured route.
func New(r config.Route, logger zerolog.Logger) (http1.Handler, error) {
	switch r.Handler {
	case config.HandlerHello:
		return Hello(), nil
	case config.HandlerText:
		return Text(r.Status, r.Mime, []byte(r.Text)), nil
	case config.HandlerJSON:
		return JSON(r.Status, r.JSON)
	case config.HandlerRedirect:
		return Redirect(r.Status, r.Location), nil
	case config.HandlerFiles:
		return NewFiles(r.Root, FilesOptions{
			Index:       r.Index,
			CacheTTL:    r.CacheTTL.Std(),
			MaxFileSize: r.MaxFileSize,
			Logger:      logger.With().Str("route", r.Prefix).Logger(),
		})
	default:
		return nil, fmt.Errorf("handlers: unknown handler %q", r.Handler)
	}
}

// Build creates a router with a handler for every route.
func Build(routes []config.Route, logger zerolog.Logger) (*http1.Router, error) {
	router := http1.NewRouter()
	for _, r := range routes {
		h, err := New(r, logger)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Prefix, err)
		}
		router.Add(r.Prefix, h)
		logger.Debug().Str("prefix", r.Prefix).Str("handler", r.Handler).Msg("route added")
	}
	return router, nil
}
