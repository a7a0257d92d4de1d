// Package main is the entry point for the CMS Lambda function.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/pricofy/cms-lambda/internal/adapter"
	"github.com/pricofy/cms-lambda/internal/bootstrap"
	"github.com/pricofy/cms-lambda/internal/config"
	"github.com/pricofy/cms-lambda/internal/logging"
	"github.com/pricofy/cms-lambda/internal/site"
)

// runtime holds what one warm process shares between invocations.
type runtime struct {
	log     *zap.Logger
	boot    *bootstrap.Bootstrapper[adapter.App]
	adapter *adapter.Adapter
}

func main() {
	settings := config.Load()

	logger, err := logging.New(settings.Environment, settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rt := newRuntime(settings, logger)
	lambda.Start(rt.handleRequest)
}

func newRuntime(settings config.Settings, logger *zap.Logger) *runtime {
	construct := func(ctx context.Context, s config.Site) (adapter.App, error) {
		return site.Boot(ctx, site.Options{
			Site:       s,
			ConfigPath: settings.ConfigPath,
			Theme:      settings.ThemeName,
			Backend:    true,
			Frontend:   true,
			Logger:     logger,
		})
	}

	boot := bootstrap.New(
		bootstrap.Sequence(settings, logger, construct),
		bootstrap.WithLogger(logger),
	)
	return &runtime{
		log:  logger,
		boot: boot,
		adapter: adapter.New(boot,
			adapter.WithLogger(logger),
			adapter.WithProduction(settings.IsProduction()),
		),
	}
}

func (rt *runtime) handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection (MUST be first - before any other processing)
	if warmup, ok := IsWarmupEvent(event); ok {
		return rt.HandleWarmup(ctx, warmup)
	}

	var req events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}

	return rt.adapter.Handle(ctx, req), nil
}
