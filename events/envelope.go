package events

import (
	"time"

	"github.com/google/uuid"
)

// Meta identifica um evento publicado no broker.
type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"` // ex: atendimento.criado.v1
	Producer      string    `json:"producer,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Time          time.Time `json:"time"`
}

// Envelope é o formato de fio de todos os eventos de domínio.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

const producer = "atende"

// NovoEnvelope monta um envelope com id e timestamp preenchidos.
func NovoEnvelope(tipo string, data any) Envelope {
	return Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Type:     tipo,
			Producer: producer,
			Time:     time.Now(),
		},
		Data: data,
	}
}

// Tipos de evento do ciclo de vida de um atendimento.
const (
	TipoAtendimentoCriado      = "atendimento.criado.v1"
	TipoAtendimentoAtribuido   = "atendimento.atribuido.v1"
	TipoAtendimentoFinalizado  = "atendimento.finalizado.v1"
	TipoAtendimentoTransferido = "atendimento.transferido.v1"
)

// AtendimentoEvento é o payload comum dos eventos de atendimento.
type AtendimentoEvento struct {
	ItemID      string     `json:"item_id"`
	FilaID      int64      `json:"fila_id"`
	ConversaID  string     `json:"conversa_id"`
	ContatoID   string     `json:"contato_id"`
	UserID      int64      `json:"user_id"`
	AtendenteID *int64     `json:"atendente_id,omitempty"`
	Status      string     `json:"status"`
	Prioridade  int        `json:"prioridade"`
	Motivo      string     `json:"motivo,omitempty"`
	Em          time.Time  `json:"em"`
}
