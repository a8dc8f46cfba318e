package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomFor_PrefixesLeadID(t *testing.T) {
	assert.Equal(t, RoomName("lead-42"), RoomFor("42"))
	assert.Equal(t, RoomName("lead-"), RoomFor(""))
	assert.Equal(t, RoomName("lead-lead-1"), RoomFor("lead-1"))
}

func TestRoomName_LeadRoundTrip(t *testing.T) {
	lead, ok := RoomFor("abc").Lead()
	require.True(t, ok)
	assert.Equal(t, LeadID("abc"), lead)

	_, ok = RoomName("general").Lead()
	assert.False(t, ok)
}

func TestNewLabel(t *testing.T) {
	l, err := NewLabel("agent")
	require.NoError(t, err)
	assert.Equal(t, Label("agent"), l)

	_, err = NewLabel("")
	assert.ErrorIs(t, err, ErrLabelEmpty)

	_, err = NewLabel(strings.Repeat("ก", MaxLabelLen))
	assert.NoError(t, err, "limit counts runes, not bytes")

	_, err = NewLabel(strings.Repeat("x", MaxLabelLen+1))
	assert.ErrorIs(t, err, ErrLabelTooLong)
}

func TestNewChatMessage_AssignsIDAndUTC(t *testing.T) {
	at := time.Date(2024, 5, 1, 17, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	m := NewChatMessage("7", "agent", "hello", at)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, VariantChat, m.Variant)
	assert.Equal(t, time.UTC, m.Timestamp.Location())
	assert.True(t, m.Timestamp.Equal(at))
	assert.Nil(t, m.Call)

	other := NewChatMessage("7", "agent", "hello", at)
	assert.NotEqual(t, m.ID, other.ID)
}

func TestNewCallMessage_Validates(t *testing.T) {
	m, err := NewCallMessage("7", "agent", CallDetails{DurationSeconds: 90, Status: CallCompleted}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, VariantCall, m.Variant)
	require.NotNil(t, m.Call)
	assert.Equal(t, 90, m.Call.DurationSeconds)

	_, err = NewCallMessage("7", "agent", CallDetails{Status: "scheduled"}, time.Now())
	assert.ErrorIs(t, err, ErrUnknownCallStatus)

	_, err = NewCallMessage("7", "agent", CallDetails{DurationSeconds: -1, Status: CallMissed}, time.Now())
	assert.ErrorIs(t, err, ErrNegativeDuration)
}

func TestParsePlatformAndVariant(t *testing.T) {
	p, err := ParsePlatform("")
	require.NoError(t, err)
	assert.Equal(t, Platform(""), p)

	_, err = ParsePlatform("line")
	assert.NoError(t, err)
	_, err = ParsePlatform("telegram")
	assert.ErrorIs(t, err, ErrUnknownPlatform)

	v, err := ParseVariant("call")
	require.NoError(t, err)
	assert.Equal(t, VariantCall, v)
	_, err = ParseVariant("sms")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}
