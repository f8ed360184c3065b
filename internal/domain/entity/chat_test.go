package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petadopt/pkg/errors"
)

func TestRoomIDIsOrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"zed", "amy"},
		{"uid9", "uid10"},
	}
	for _, p := range pairs {
		ab, err := RoomID(p[0], p[1])
		require.NoError(t, err)
		ba, err := RoomID(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)

		parsed, err := ParseRoomID(ab)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{p[0], p[1]}, parsed)
	}
}

func TestRoomIDRejectsMalformedPairs(t *testing.T) {
	for _, p := range [][2]string{{"", "bob"}, {"bob", "bob"}, {"a_b", "c"}, {"  ", "x"}} {
		_, err := RoomID(p[0], p[1])
		assert.True(t, errors.Is(err, errors.CodeValidation), "pair %v", p)
	}

	for _, id := range []string{"", "solo", "b_a", "a_b_c", "_a"} {
		_, err := ParseRoomID(id)
		assert.Error(t, err, "room id %q", id)
	}
}

func TestChatRoomValidate(t *testing.T) {
	room := &ChatRoom{ID: "a_b", Participants: []string{"a", "b"}}
	assert.NoError(t, room.Validate())

	assert.Error(t, (&ChatRoom{Participants: []string{"a", "b"}}).Validate())
	assert.Error(t, (&ChatRoom{ID: "a_b", Participants: []string{"a"}}).Validate())
	assert.Error(t, (&ChatRoom{ID: "a_b", Participants: []string{"a", "b"}, LastMessage: &LastMessage{Text: "hi"}}).Validate())
}

func TestChatRoomCloneIsDeep(t *testing.T) {
	now := time.Now()
	room := &ChatRoom{
		ID:           "a_b",
		Participants: []string{"a", "b"},
		ReadBy:       map[string]time.Time{"a": now},
		LastMessage:  &LastMessage{Text: "hi", SenderID: "b", CreatedAt: now},
	}
	clone := room.Clone()
	clone.ReadBy["b"] = now
	clone.LastMessage.Text = "changed"

	assert.NotContains(t, room.ReadBy, "b")
	assert.Equal(t, "hi", room.LastMessage.Text)
	assert.Equal(t, "a", clone.OtherParticipant("b"))
}

func TestSortMessagesBreaksTiesBySeq(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msgs := []*Message{
		{ID: "z", CreatedAt: at, Seq: 2},
		{ID: "y", CreatedAt: at.Add(-time.Second), Seq: 1},
		{ID: "a", CreatedAt: at, Seq: 3},
	}
	SortMessages(msgs)

	assert.Equal(t, []string{"y", "z", "a"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}
