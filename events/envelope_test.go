package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNovoEnvelopePreencheMeta(t *testing.T) {
	env := NovoEnvelope(TipoAtendimentoCriado, AtendimentoEvento{ItemID: "abc"})

	assert.NotEmpty(t, env.Meta.ID)
	assert.Equal(t, TipoAtendimentoCriado, env.Meta.Type)
	assert.Equal(t, "atende", env.Meta.Producer)
	assert.WithinDuration(t, time.Now(), env.Meta.Time, time.Second)

	data, ok := env.Data.(AtendimentoEvento)
	assert.True(t, ok)
	assert.Equal(t, "abc", data.ItemID)
}

func TestFallbackPublisherNuncaFalha(t *testing.T) {
	pub := NewFallback()
	defer pub.Close()

	err := pub.Publish(context.Background(), TipoAtendimentoCriado, NovoEnvelope(TipoAtendimentoCriado, nil))
	assert.NoError(t, err)
}
