package query

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-layerexport/export"
)

// RunHistory lists tracked mode export attempts.
type RunHistory struct {
	Filter export.AttemptFilter
}

func (RunHistory) Type() string { return "layers:history" }

func (msg RunHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	if msg.Filter.Mode != "" {
		if err := export.ValidateMode(msg.Filter.Mode); err != nil {
			return errors.New("invalid mode filter", errors.CategoryValidation).
				WithTextCode("MODE_INVALID")
		}
	}
	switch msg.Filter.Outcome {
	case "", export.OutcomeSucceeded, export.OutcomeFailed, export.OutcomeToolMissing:
	default:
		return errors.New("invalid outcome filter", errors.CategoryValidation).
			WithTextCode("OUTCOME_INVALID")
	}
	return nil
}
