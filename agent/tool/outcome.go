package tool

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
)

// Outcome is the normalized result of one tool call.
type Outcome struct {
	Tool    string   `json:"tool"`
	OK      bool     `json:"ok"`
	Payload any      `json:"payload,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   *Failure `json:"error,omitempty"`
}

// Failure is a conversational rendering of an error. Err keeps the typed
// carrier for callers that need its details.
type Failure struct {
	Kind    contractx.ErrorKind `json:"kind"`
	Message string              `json:"message"`
	Options []string            `json:"options,omitempty"`
	Err     error               `json:"-"`
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// PayloadAs returns the payload as T.
func PayloadAs[T any](o Outcome) (T, bool) {
	v, ok := o.Payload.(T)
	return v, ok
}

// NewFailure renders err for the caller. action completes the sentence
// "Failed to ... due to internal system issue".
func NewFailure(action string, err error) *Failure {
	if err == nil {
		return nil
	}
	if action == "" {
		action = "complete the request"
	}
	f := &Failure{Kind: contractx.KindOf(err), Err: err}

	var (
		verr     *contractx.ValidationError
		amb      *contractx.AmbiguityError
		conflict *contractx.ConflictError
		multi    *scheduling.MultipleMatchError
		nf       *contractx.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		f.Options = verr.Options
		f.Message = validationMessage(verr)
	case errors.As(err, &multi):
		for _, a := range multi.Matches {
			f.Options = append(f.Options, a.Summary())
		}
		f.Message = "I found more than one appointment that matches: " + strings.Join(f.Options, "; ") +
			". Which one do you mean? You can give me the time or the appointment id."
	case errors.As(err, &amb):
		f.Options = amb.Matches
		f.Message = fmt.Sprintf("%q matches more than one %s: %s. Which one do you mean?",
			amb.Input, amb.Field, strings.Join(amb.Matches, ", "))
	case errors.As(err, &conflict):
		f.Options = conflict.OpenSlots
		f.Message = conflictMessage(conflict)
	case errors.As(err, &nf):
		f.Message = fmt.Sprintf("I couldn't find %s. Please check the details and try again.", describeNotFound(nf))
	default:
		f.Kind = contractx.KindInternal
		f.Message = fmt.Sprintf("Failed to %s due to internal system issue. Please try again later.", action)
	}
	return f
}

func validationMessage(e *contractx.ValidationError) string {
	var b strings.Builder
	switch {
	case len(e.Missing) > 0:
		fmt.Fprintf(&b, "I still need the following: %s.", strings.Join(e.Missing, ", "))
	case e.Field != "":
		fmt.Fprintf(&b, "That %s doesn't work: %s.", e.Field, e.Reason)
	default:
		b.WriteString(e.Reason)
	}
	if len(e.Options) > 0 {
		fmt.Fprintf(&b, " Available options: %s.", strings.Join(e.Options, ", "))
	}
	return b.String()
}

func conflictMessage(e *contractx.ConflictError) string {
	msg := fmt.Sprintf("%s is already booked on %s at %s.", e.Provider, e.Date, e.Time)
	if len(e.OpenSlots) == 0 {
		return msg + " There are no open slots that day. Please choose another date."
	}
	return msg + fmt.Sprintf(" Open slots that day: %s. Which time works for you?", strings.Join(e.OpenSlots, ", "))
}

func describeNotFound(e *contractx.NotFoundError) string {
	switch {
	case e.What == "appointment" && e.Key != "":
		return "an active appointment with id " + e.Key
	case e.Key != "":
		return "an active " + e.What + " " + e.Key
	default:
		return "an active " + e.What
	}
}
