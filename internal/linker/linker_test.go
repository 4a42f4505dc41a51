package linker

import (
	"clanaudit/internal/clashapi"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {

	l := New([]Association{
		{UserID: "user-1", Tag: "AAA"},
		{UserID: "user-2", Tag: "BBB"},
	})

	userID, ok := l.Resolve("AAA")
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, ok = l.Resolve("CCC")
	assert.False(t, ok)

	assert.Equal(t, 2, l.Len())
}

func TestDuplicateTagKeepsFirstAssociation(t *testing.T) {

	l := New([]Association{
		{UserID: "user-1", Tag: "AAA"},
		{UserID: "user-2", Tag: "AAA"},
		{UserID: "user-3", Tag: "AAA"},
	})

	userID, ok := l.Resolve("AAA")
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, 1, l.Len())
}

func TestFromTableIsDeterministic(t *testing.T) {

	table := map[string]clashapi.Tag{
		"user-b": "AAA",
		"user-a": "AAA",
		"user-c": "BBB",
	}

	// Same winner on every build, regardless of map iteration order
	for i := 0; i < 20; i++ {
		l := FromTable(table)
		userID, ok := l.Resolve("AAA")
		assert.True(t, ok)
		assert.Equal(t, "user-a", userID)
	}
}
