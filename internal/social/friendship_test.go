package social_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/kinship-media/kinship/internal/social"
	"github.com/stretchr/testify/assert"
)

func Test_CanonicalPair_OrderInsensitive(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	firstAB, secondAB := social.CanonicalPair(a, b)
	firstBA, secondBA := social.CanonicalPair(b, a)

	assert.Equal(t, firstAB, firstBA)
	assert.Equal(t, secondAB, secondBA)
	assert.True(t, firstAB.String() < secondAB.String())
}

func Test_PairHash_Properties(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	assert.Equal(t, social.PairHash(a, b), social.PairHash(b, a))
	assert.NotEqual(t, social.PairHash(a, b), social.PairHash(a, c))
	assert.Len(t, social.PairHash(a, b), 64)
}

func Test_Friendship_OtherAccount(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	friendship := &social.Friendship{ID: uuid.New(), Account1ID: a, Account2ID: b}

	other, ok := friendship.OtherAccount(a)
	assert.True(t, ok)
	assert.Equal(t, b, other)

	other, ok = friendship.OtherAccount(b)
	assert.True(t, ok)
	assert.Equal(t, a, other)

	_, ok = friendship.OtherAccount(uuid.New())
	assert.False(t, ok)
}
