package bootstrap

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pricofy/cms-lambda/internal/config"
	"github.com/pricofy/cms-lambda/internal/content"
)

// Sequence returns the cold-start boot function: resolve the config file,
// prepare the content tree, then construct the application.
func Sequence[T any](settings config.Settings, log *zap.Logger, construct func(ctx context.Context, site config.Site) (T, error)) BootFunc[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context) (T, error) {
		var zero T

		res, err := config.Materialize(settings.TemplatePath, settings.ConfigPath, settings.Values)
		if err != nil {
			return zero, errors.Wrap(err, "materialize config")
		}
		switch {
		case res.Skipped:
			log.Info("Config template not found, using application defaults",
				zap.String("template", settings.TemplatePath))
		default:
			log.Info("Config materialized",
				zap.String("path", settings.ConfigPath),
				zap.Strings("replaced", res.Replaced))
		}
		for _, u := range res.Unresolved {
			log.Warn("Config placeholder left unresolved",
				zap.String("token", u.Token),
				zap.Strings("paths", u.Paths))
		}
		if err := config.Check(res, settings.StrictConfig); err != nil {
			return zero, errors.WithStack(err)
		}

		seed := content.Seed{Source: settings.ThemeSource, Name: settings.ThemeName}
		if _, err := content.EnsureTree(settings.ContentPath, seed, log); err != nil {
			return zero, errors.Wrap(err, "prepare content tree")
		}

		inst, err := construct(ctx, settings.Site())
		if err != nil {
			return zero, errors.Wrap(err, "construct application")
		}
		return inst, nil
	}
}
