package models

import "time"

/************************************************
/**** MARK: STATUS DO ATENDIMENTO ****/
/************************************************/

type StatusAtendimento string

const (
	AtendimentoAguardando  StatusAtendimento = "AGUARDANDO"
	AtendimentoEmAndamento StatusAtendimento = "EM_ATENDIMENTO"
	AtendimentoFinalizado  StatusAtendimento = "FINALIZADO"
	AtendimentoTransferido StatusAtendimento = "TRANSFERIDO"
)

// AtendimentoItem é um ticket em uma fila: a unidade de trabalho humano
// pendente ou em andamento de uma conversa. Nunca é apagado fisicamente;
// o ciclo de vida termina em FINALIZADO ou TRANSFERIDO.
type AtendimentoItem struct {
	ID             string            `gorm:"primary_key;type:varchar(36)" json:"id"`
	FilaID         int64             `gorm:"not null;index" json:"fila_id"`
	ConversaID     string            `gorm:"not null;index" json:"conversa_id"`
	ContatoID      string            `gorm:"not null" json:"contato_id"`
	UserID         int64             `gorm:"not null;index" json:"user_id"` // tenant
	Prioridade     int               `gorm:"not null;default:0" json:"prioridade"` // maior = mais urgente
	Posicao        *int              `json:"posicao"`                              // nil depois de atribuído
	AtendenteID    *int64            `gorm:"index" json:"atendente_id"`
	Status         StatusAtendimento `gorm:"not null;default:'AGUARDANDO';index" json:"status"`
	Motivo         string            `gorm:"type:text" json:"motivo"`
	Observacoes    string            `gorm:"type:text" json:"observacoes"`
	Transferencias int               `gorm:"not null;default:0" json:"transferencias"`
	EntradaEm      time.Time         `json:"entrada_em"`
	InicioEm       *time.Time        `json:"inicio_em"`
	FimEm          *time.Time        `json:"fim_em"`
	Avaliacao      *int              `json:"avaliacao"`
	Feedback       string            `gorm:"type:text" json:"feedback"`
}

// Aberto diz se o item ainda conta como ticket vivo da conversa.
func (i AtendimentoItem) Aberto() bool {
	return i.Status == AtendimentoAguardando || i.Status == AtendimentoEmAndamento
}
