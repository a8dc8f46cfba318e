package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Variant string

const (
	VariantChat Variant = "chat"
	VariantCall Variant = "call"
)

type Platform string

const (
	PlatformLine     Platform = "line"
	PlatformFacebook Platform = "facebook"
	PlatformWhatsApp Platform = "whatsapp"
	PlatformWeb      Platform = "web"
)

type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallMissed    CallStatus = "missed"
	CallIncoming  CallStatus = "incoming"
	CallOutgoing  CallStatus = "outgoing"
)

var (
	ErrUnknownVariant    = errors.New("unknown message variant")
	ErrUnknownCallStatus = errors.New("unknown call status")
	ErrNegativeDuration  = errors.New("negative call duration")
)

type CallDetails struct {
	DurationSeconds int
	Status          CallStatus
	Notes           string
}

// Message is the single conversation entry shape. Chat entries carry Text,
// call entries carry Call. ID and Timestamp are assigned by the relay.
type Message struct {
	ID        string
	LeadID    LeadID
	Variant   Variant
	Sender    Label
	Timestamp time.Time
	Platform  Platform

	Text string
	Call *CallDetails
}

func NewChatMessage(lead LeadID, sender Label, text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		LeadID:    lead,
		Variant:   VariantChat,
		Sender:    sender,
		Timestamp: at.UTC(),
		Text:      text,
	}
}

func NewCallMessage(lead LeadID, sender Label, call CallDetails, at time.Time) (Message, error) {
	if err := call.Validate(); err != nil {
		return Message{}, err
	}
	return Message{
		ID:        uuid.NewString(),
		LeadID:    lead,
		Variant:   VariantCall,
		Sender:    sender,
		Timestamp: at.UTC(),
		Call:      &call,
	}, nil
}

func (c CallDetails) Validate() error {
	if c.DurationSeconds < 0 {
		return ErrNegativeDuration
	}
	switch c.Status {
	case CallCompleted, CallMissed, CallIncoming, CallOutgoing:
		return nil
	}
	return ErrUnknownCallStatus
}

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantChat, VariantCall:
		return Variant(s), nil
	}
	return "", ErrUnknownVariant
}

var ErrUnknownPlatform = errors.New("unknown platform")

// ParsePlatform accepts an empty string as "not specified".
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case "", PlatformLine, PlatformFacebook, PlatformWhatsApp, PlatformWeb:
		return Platform(s), nil
	}
	return "", ErrUnknownPlatform
}
