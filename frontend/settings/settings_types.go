package settings

import "errors"

var (
	ErrInvalidRecipient   = errors.New("invalid email address")
	ErrDuplicateRecipient = errors.New("email address already added")
)

// RecipientsView is the settings screen payload.
type RecipientsView struct {
	Recipients []string `json:"recipients"`
}
