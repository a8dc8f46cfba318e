package bridge

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/leadrelay/internal/domain"
)

// View is the local state of the conversation currently on screen. Typing
// indicators expire after the configured timeout since the relay never
// tracks them.
type View struct {
	mu       sync.Mutex
	lead     domain.LeadID
	messages []domain.Message
	typing   map[domain.Label]time.Time
	timeout  time.Duration
	now      func() time.Time
}

func NewView(typingTimeout time.Duration) *View {
	return &View{
		typing:  make(map[domain.Label]time.Time),
		timeout: typingTimeout,
		now:     time.Now,
	}
}

// Reset clears the view for a newly selected lead.
func (v *View) Reset(lead domain.LeadID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lead = lead
	v.messages = nil
	v.typing = make(map[domain.Label]time.Time)
}

func (v *View) Lead() domain.LeadID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lead
}

func (v *View) AddMessage(m domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, m)
	// a message ends that sender's typing indicator
	delete(v.typing, m.Sender)
}

func (v *View) SetTyping(user domain.Label) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing[user] = v.now()
}

func (v *View) ClearTyping(user domain.Label) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.typing, user)
}

func (v *View) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// TypingUsers returns users whose indicator has not expired, sorted.
func (v *View) TypingUsers() []domain.Label {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	out := make([]domain.Label, 0, len(v.typing))
	for user, at := range v.typing {
		if v.timeout > 0 && now.Sub(at) >= v.timeout {
			delete(v.typing, user)
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
