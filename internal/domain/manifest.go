package domain

import (
	"errors"
	"fmt"
)

// Manifest describes one invocation: which bot connects, which extra intents it
// declares and the ordered actions it runs.
type Manifest struct {
	Name            string
	Identity        Identity
	Intents         IntentSet
	ContinueOnError bool
	Actions         []Action
}

// RequiredIntents is the union of the minimum set, the declared extras and
// every action's own requirements.
func (m Manifest) RequiredIntents() IntentSet {
	intents := MinimumIntents.With(m.Intents)
	for _, action := range m.Actions {
		intents = intents.With(action.Intents())
	}
	return intents
}

func (m Manifest) Validate() error {
	if _, err := ParseIdentity(string(m.Identity)); err != nil {
		return err
	}
	if len(m.Actions) == 0 {
		return fmt.Errorf("%w: manifest has no actions", ErrConfig)
	}

	var errs []error
	for i, action := range m.Actions {
		if action == nil {
			errs = append(errs, fmt.Errorf("action %d: %w: empty action", i+1, ErrConfig))
			continue
		}
		if err := action.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("action %d (%s): %w", i+1, action.Type(), err))
		}
	}
	return errors.Join(errs...)
}
