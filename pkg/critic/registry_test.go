package critic

import (
	"testing"

	"ai-critic-be/pkg/analysis"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(Defaults()...)
	assert.Equal(t, []string{RepeatedWordsID, LongSentenceID}, r.IDs())

	r.SetDynamic([]analysis.Worker{
		NewLLMCritic(Definition{ID: "structure"}, &fakeProvider{}, 0.8),
	})
	assert.Equal(t, []string{RepeatedWordsID, LongSentenceID, "structure"}, r.IDs())

	r.SetDynamic(nil)
	assert.Len(t, r.Workers(), 2)
}

func TestRegistry_WorkersIsACopy(t *testing.T) {
	r := NewRegistry(Defaults()...)

	ws := r.Workers()
	ws[0] = nil

	assert.NotNil(t, r.Workers()[0])
}
