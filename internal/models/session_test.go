package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("alice", "bob"), PairKey("bob", "alice"))
	assert.Equal(t, "alice:bob", PairKey("bob", "alice"))
}

func TestSession_ReviewHelpers(t *testing.T) {
	s := Session{UserAID: "a", UserBID: "b", ReviewedBy: []string{"a"}}

	assert.True(t, s.HasReviewed("a"))
	assert.False(t, s.HasReviewed("b"))
	assert.False(t, s.FullyReviewed())

	s.ReviewedBy = append(s.ReviewedBy, "b")
	assert.True(t, s.FullyReviewed())

	assert.Equal(t, "b", s.PartnerOf("a"))
	assert.Equal(t, "a", s.PartnerOf("b"))
	assert.Equal(t, "", s.PartnerOf("stranger"))
	assert.False(t, s.IsParticipant("stranger"))
}

func TestParseReplyEnvelope(t *testing.T) {
	env, err := ParseReplyEnvelope(`{"text":"sure","reply_to":{"id":"m1","content":"can you help?","sender_id":"a"}}`)
	assert.NoError(t, err)
	assert.Equal(t, "sure", env.Text)
	assert.Equal(t, "m1", env.ReplyTo.ID)

	_, err = ParseReplyEnvelope("not json")
	assert.Error(t, err)
}
