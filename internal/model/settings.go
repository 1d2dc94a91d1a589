package model

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultDailyCap is the send limit used when no cap has been configured.
const DefaultDailyCap = 25

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings is the single user-maintained settings record.
type Settings struct {
	// SenderName is the optional display name placed in the From header.
	SenderName string `json:"sender_name" db:"sender_name" validate:"max=200"`

	// SenderEmail is the address mail is sent from. Sending is refused
	// while it is empty.
	SenderEmail string `json:"sender_email" db:"sender_email" validate:"omitempty,email"`

	// BCCList is a comma-separated list of addresses blind-copied on every
	// send that does not override it.
	BCCList string `json:"bcc_list" db:"bcc_list"`

	// DailyCap is the number of messages allowed per local calendar day.
	DailyCap int `json:"daily_cap" db:"daily_cap" validate:"gte=0"`
}

// DefaultSettings returns the record used before the user saves anything.
func DefaultSettings() Settings {
	return Settings{DailyCap: DefaultDailyCap}
}

// Validate checks field constraints, including every BCC address.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	for _, addr := range SplitAddressList(s.BCCList) {
		if err := validate.Var(addr, "email"); err != nil {
			return fmt.Errorf("invalid bcc address %q: %w", addr, err)
		}
	}
	return nil
}

// SplitAddressList splits a comma or semicolon separated address list,
// trimming blanks and dropping empty entries.
func SplitAddressList(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';'
	})

	addrs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			addrs = append(addrs, f)
		}
	}
	return addrs
}
