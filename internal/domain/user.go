// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

// MaxLabelLen bounds sender/user labels. Labels are free-form otherwise.
const MaxLabelLen = 128

var (
	ErrLabelTooLong = errors.New("label too long")
	ErrLabelEmpty   = errors.New("label empty")
)

// Label is the display identity a client attaches to a message or a typing
// signal ("agent", "Somchai", ...). It is not authenticated.
type Label string

func NewLabel(s string) (Label, error) {
	if len(s) == 0 {
		return "", ErrLabelEmpty
	}
	if utf8.RuneCountInString(s) > MaxLabelLen {
		return "", ErrLabelTooLong
	}
	return Label(s), nil
}

// TypingSignal is an ephemeral presence hint. Nothing stores it.
type TypingSignal struct {
	LeadID LeadID
	User   Label
}
