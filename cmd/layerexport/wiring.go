package main

import (
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-layerexport/command"
	"github.com/goliatone/go-layerexport/export"
	"github.com/goliatone/go-layerexport/query"
)

// registerHandlers wires the layer export command and, when a tracker is
// configured, the history query to go-command. Handler errors go to logger
// instead of the standard log package; the CLI reports them itself.
func registerHandlers(reg *gcmd.Registry, exporter command.Exporter, tracker export.ProgressTracker, logger export.Logger) ([]dispatcher.Subscription, error) {
	if exporter == nil && tracker == nil {
		return nil, errors.New("exporter or tracker is required", errors.CategoryValidation).
			WithTextCode("HANDLERS_REQUIRED")
	}

	opts := dispatchOptions(logger)
	handlers := make([]any, 0, 3)
	subscriptions := make([]dispatcher.Subscription, 0, 3)
	if exporter != nil {
		all := command.NewExportLayersHandler(exporter)
		one := command.NewExportLayerHandler(exporter)
		subscriptions = append(subscriptions,
			dispatcher.SubscribeCommand(all, opts...),
			dispatcher.SubscribeCommand(one, opts...),
		)
		handlers = append(handlers, all, one)
	}
	if tracker != nil {
		history := query.NewRunHistoryHandler(tracker)
		subscriptions = append(subscriptions, dispatcher.SubscribeQuery(history, opts...))
		handlers = append(handlers, history)
	}

	if reg != nil {
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}
	return subscriptions, nil
}

func dispatchOptions(logger export.Logger) []runner.Option {
	if logger == nil {
		logger = export.NopLogger{}
	}
	return []runner.Option{
		runner.WithErrorHandler(func(err error) {
			logger.Debugf("dispatch: %v", err)
		}),
		runner.WithDoneHandler(func(*runner.Handler) {}),
	}
}

func unsubscribeAll(subs []dispatcher.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
