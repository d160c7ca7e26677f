// Package locale holds the embedded display-label catalog.
package locale

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-dailydash/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog translates label keys for one language.
type Catalog struct {
	Languages []string

	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// New loads every embedded locale and selects lang, falling back to English.
func New(lang string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	c := &Catalog{bundle: bundle}
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name)
			continue
		}

		code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err))
			continue
		}
		c.Languages = append(c.Languages, code)

		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code,
			config.LogKeyFile, name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if lang == "" {
		lang = config.DefaultLanguage
	}
	c.localizer = i18n.NewLocalizer(bundle, lang, config.DefaultLanguage)
	return c, nil
}

// Msg translates key. A missing key renders as the key itself.
func (c *Catalog) Msg(key string) string {
	return c.localize(&i18n.LocalizeConfig{MessageID: key})
}

// Label renders a countdown: "Today!", "Tomorrow" or "N days".
func (c *Catalog) Label(days int) string {
	switch days {
	case 0:
		return c.Msg(config.TKeyCountdownToday)
	case 1:
		return c.Msg(config.TKeyCountdownTomorrow)
	}
	return c.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyCountdownDays,
		PluralCount:  days,
		TemplateData: map[string]any{"Count": days},
	})
}

func (c *Catalog) localize(lc *i18n.LocalizeConfig) string {
	if c == nil || c.localizer == nil {
		return lc.MessageID
	}
	msg, err := c.localizer.Localize(lc)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, err)
		return lc.MessageID
	}
	return msg
}
