package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/domain"
)

// envelope is common to every client event. ref is echoed in the ack.
type envelope struct {
	Type string `json:"type"`
	Ref  string `json:"ref,omitempty"`
}

type createRequest struct {
	envelope
	UID      domain.UserID `json:"uid" validate:"required,max=254"`
	Token    string        `json:"token" validate:"required"`
	Password string        `json:"password" validate:"required"`
	IsChat   bool          `json:"isChat"`
}

type joinRequest struct {
	envelope
	UID          domain.UserID `json:"uid" validate:"required,max=254"`
	Token        string        `json:"token" validate:"required"`
	Password     string        `json:"password" validate:"required"`
	SessionToken string        `json:"sessionToken" validate:"required"`
	Audio        *bool         `json:"audio"`
	Video        *bool         `json:"video"`
}

type leaveRequest struct {
	envelope
	UID          domain.UserID `json:"uid" validate:"required,max=254"`
	SessionToken string        `json:"sessionToken" validate:"required"`
}

type terminateRequest struct {
	envelope
	UID          domain.UserID `json:"uid" validate:"required,max=254"`
	Token        string        `json:"token" validate:"required"`
	SessionToken string        `json:"sessionToken" validate:"required"`
}

type preferenceRequest struct {
	envelope
	UID          domain.UserID       `json:"uid" validate:"required,max=254"`
	SessionToken string              `json:"sessionToken" validate:"required"`
	Value        *domain.MediaStatus `json:"value" validate:"required"`
}

type readyRequest struct {
	envelope
	UID          domain.UserID `json:"uid" validate:"required,max=254"`
	Token        string        `json:"token" validate:"required"`
	SessionToken string        `json:"sessionToken" validate:"required"`
}

type messageRequest struct {
	envelope
	Sender       domain.UserID `json:"sender" validate:"required,max=254"`
	Token        string        `json:"token" validate:"required"`
	SessionToken string        `json:"sessionToken" validate:"required"`
	Message      string        `json:"message" validate:"required"`
	Receiver     domain.UserID `json:"receiver" validate:"omitempty,max=254"`
}

type signalRequest struct {
	envelope
	Sender       domain.UserID   `json:"sender" validate:"required,max=254"`
	Target       domain.UserID   `json:"target" validate:"required,max=254"`
	SessionToken string          `json:"sessionToken" validate:"required"`
	Signal       json.RawMessage `json:"signal" validate:"required"`
	Audio        *bool           `json:"audio"`
	Video        *bool           `json:"video"`
}

type pingRequest struct {
	envelope
}

// decode parses data strictly into T and validates it. Unknown fields and
// failed constraints are BadInput.
func decode[T any](ctl *SignalWSController, data []byte) (*T, error) {
	var req T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, apperr.Wrap(apperr.BadInput, err, "malformed event")
	}
	if err := ctl.validate.Struct(&req); err != nil {
		return nil, apperr.BadInputf("%s", describe(err))
	}
	return &req, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("missing %s", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("invalid %s", fe.Field()))
		}
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }
