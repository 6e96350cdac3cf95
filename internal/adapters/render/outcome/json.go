package outcome

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bnema/opsbot/internal/application"
	"github.com/bnema/opsbot/internal/domain"
)

// ResultDocument is the --json form of a session result.
type ResultDocument struct {
	State      domain.SessionState `json:"state"`
	Identity   *domain.BotIdentity `json:"identity,omitempty"`
	Outcomes   []domain.Outcome    `json:"outcomes"`
	CloseError string              `json:"close_error,omitempty"`
}

func NewResultDocument(result application.Result) ResultDocument {
	doc := ResultDocument{State: result.State, Outcomes: result.Outcomes}
	if doc.Outcomes == nil {
		doc.Outcomes = []domain.Outcome{}
	}
	if !result.Identity.UserID.IsZero() {
		identity := result.Identity
		doc.Identity = &identity
	}
	if result.CloseErr != nil {
		doc.CloseError = result.CloseErr.Error()
	}
	return doc
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}
