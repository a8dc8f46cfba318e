package protocol

import (
	"fmt"
	"time"

	"github.com/dkeye/leadrelay/internal/domain"
)

// LeadRef decodes the join/leave payload. The dashboard sends the lead id as
// a bare value; {"leadId": ...} is accepted as well.
func LeadRef(data any) (domain.LeadID, error) {
	if m, ok := data.(map[string]any); ok {
		var in struct {
			LeadID string `mapstructure:"leadId"`
		}
		if err := decodeFields(m, &in, "leadId"); err != nil {
			return "", err
		}
		return domain.LeadID(in.LeadID), nil
	}
	s, err := decodeScalar(data)
	if err != nil {
		return "", err
	}
	return domain.LeadID(s), nil
}

type SendMessageIn struct {
	LeadID   string `mapstructure:"leadId"`
	Message  string `mapstructure:"message"`
	Sender   string `mapstructure:"sender"`
	Platform string `mapstructure:"platform"`
}

func DecodeSendMessage(data any) (SendMessageIn, domain.Label, error) {
	var in SendMessageIn
	if err := decodeFields(data, &in, "leadId", "message", "sender"); err != nil {
		return in, "", err
	}
	sender, err := domain.NewLabel(in.Sender)
	if err != nil {
		return in, "", fmt.Errorf("%w: sender: %v", ErrMalformed, err)
	}
	if _, err := domain.ParsePlatform(in.Platform); err != nil {
		return in, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return in, sender, nil
}

type LogCallIn struct {
	LeadID   string `mapstructure:"leadId"`
	Sender   string `mapstructure:"sender"`
	Duration int    `mapstructure:"duration"`
	Status   string `mapstructure:"status"`
	Notes    string `mapstructure:"notes"`
}

func DecodeLogCall(data any) (domain.LeadID, domain.Label, domain.CallDetails, error) {
	var in LogCallIn
	if err := decodeFields(data, &in, "leadId", "sender", "status"); err != nil {
		return "", "", domain.CallDetails{}, err
	}
	sender, err := domain.NewLabel(in.Sender)
	if err != nil {
		return "", "", domain.CallDetails{}, fmt.Errorf("%w: sender: %v", ErrMalformed, err)
	}
	call := domain.CallDetails{
		DurationSeconds: in.Duration,
		Status:          domain.CallStatus(in.Status),
		Notes:           in.Notes,
	}
	if err := call.Validate(); err != nil {
		return "", "", domain.CallDetails{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return domain.LeadID(in.LeadID), sender, call, nil
}

// TypingPayload is used in both directions for typing and stop-typing.
type TypingPayload struct {
	LeadID string `json:"leadId" mapstructure:"leadId"`
	User   string `json:"user" mapstructure:"user"`
}

func DecodeTyping(data any) (domain.TypingSignal, error) {
	var in TypingPayload
	if err := decodeFields(data, &in, "leadId", "user"); err != nil {
		return domain.TypingSignal{}, err
	}
	user, err := domain.NewLabel(in.User)
	if err != nil {
		return domain.TypingSignal{}, fmt.Errorf("%w: user: %v", ErrMalformed, err)
	}
	return domain.TypingSignal{LeadID: domain.LeadID(in.LeadID), User: user}, nil
}

func NewTypingPayload(sig domain.TypingSignal) TypingPayload {
	return TypingPayload{LeadID: string(sig.LeadID), User: string(sig.User)}
}

type ConnectedPayload struct {
	ID string `json:"id" mapstructure:"id"`
}

type CallPayload struct {
	Duration int    `json:"duration" mapstructure:"duration"`
	Status   string `json:"status" mapstructure:"status"`
	Notes    string `json:"notes,omitempty" mapstructure:"notes"`
}

// NewMessagePayload is what every room member receives for a relayed message.
type NewMessagePayload struct {
	ID        string       `json:"id" mapstructure:"id"`
	Type      string       `json:"type" mapstructure:"type"`
	LeadID    string       `json:"leadId" mapstructure:"leadId"`
	Message   string       `json:"message" mapstructure:"message"`
	Sender    string       `json:"sender" mapstructure:"sender"`
	Timestamp string       `json:"timestamp" mapstructure:"timestamp"`
	Platform  string       `json:"platform,omitempty" mapstructure:"platform"`
	Call      *CallPayload `json:"call,omitempty" mapstructure:"call"`
}

func NewMessageFrom(m domain.Message) NewMessagePayload {
	p := NewMessagePayload{
		ID:        m.ID,
		Type:      string(m.Variant),
		LeadID:    string(m.LeadID),
		Message:   m.Text,
		Sender:    string(m.Sender),
		Timestamp: m.Timestamp.UTC().Format(TimestampLayout),
		Platform:  string(m.Platform),
	}
	if m.Call != nil {
		p.Call = &CallPayload{
			Duration: m.Call.DurationSeconds,
			Status:   string(m.Call.Status),
			Notes:    m.Call.Notes,
		}
	}
	return p
}

func DecodeNewMessage(data any) (domain.Message, error) {
	var in NewMessagePayload
	if err := decodeFields(data, &in, "leadId", "sender", "timestamp"); err != nil {
		return domain.Message{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, in.Timestamp)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
	}
	variant := domain.VariantChat
	if in.Type != "" {
		if variant, err = domain.ParseVariant(in.Type); err != nil {
			return domain.Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	m := domain.Message{
		ID:        in.ID,
		LeadID:    domain.LeadID(in.LeadID),
		Variant:   variant,
		Sender:    domain.Label(in.Sender),
		Timestamp: at,
		Platform:  domain.Platform(in.Platform),
		Text:      in.Message,
	}
	if in.Call != nil {
		m.Call = &domain.CallDetails{
			DurationSeconds: in.Call.Duration,
			Status:          domain.CallStatus(in.Call.Status),
			Notes:           in.Call.Notes,
		}
	}
	return m, nil
}
