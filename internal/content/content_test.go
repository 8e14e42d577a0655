package content

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInheritsContest(t *testing.T) {
	src, err := Decode(strings.NewReader(`
contest: law
questions:
  - id: L1
    text: First?
    topic: civil
    options: [a, b]
    correct: 1
    explanation: because
  - id: L2
    contest: other
    text: Second?
    options: [x]
    version: 4
`))
	require.NoError(t, err)

	qs, err := src.Definitions(context.Background())
	require.NoError(t, err)
	require.Len(t, qs, 2)

	assert.Equal(t, "law", qs[0].PublicContest)
	assert.Equal(t, 1, qs[0].QuestionVersion)
	require.NotNil(t, qs[0].Explanation)
	assert.Equal(t, "because", *qs[0].Explanation)
	assert.Nil(t, qs[0].Difficulty)

	assert.Equal(t, "other", qs[1].PublicContest)
	assert.Equal(t, 4, qs[1].QuestionVersion)
}

func TestDecodeRejectsMissingID(t *testing.T) {
	_, err := Decode(strings.NewReader("questions:\n  - text: orphan\n"))
	assert.Error(t, err)
}

func TestSeedParses(t *testing.T) {
	src, err := Seed()
	require.NoError(t, err)
	qs, _ := src.Definitions(context.Background())
	assert.NotEmpty(t, qs)
	for _, q := range qs {
		assert.Equal(t, "general", q.PublicContest)
		assert.Less(t, q.CorrectAnswerIndex, len(q.Options))
	}
}
