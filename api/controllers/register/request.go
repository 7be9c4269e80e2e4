package register

import (
	"strings"

	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
)

const maxSourceIDLen = 255

// KeypadRequest is either a button press or a run of keyboard text.
type KeypadRequest struct {
	Key  string `json:"key" validate:"omitempty,max=16"`
	Text string `json:"text" validate:"omitempty,max=64"`
}

func (r KeypadRequest) validate() error {
	hasKey := strings.TrimSpace(r.Key) != ""
	hasText := r.Text != ""
	switch {
	case hasKey && hasText:
		return pkgerrors.New(pkgerrors.CodeValidation, "send either key or text").WithDetails(map[string]string{"key": "cannot be combined with text"})
	case !hasKey && !hasText:
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"key": "is required"})
	}
	return nil
}

type ChargeRequest struct {
	SourceID string `json:"source_id" validate:"omitempty,max=255"`
}
