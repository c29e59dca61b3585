package models

import "time"

/************************************************
/**** MARK: DISTRIBUIÇÃO ****/
/************************************************/

type ModoDistribuicao string

const (
	DistribuicaoRodizio      ModoDistribuicao = "RODIZIO"
	DistribuicaoMenosOcupado ModoDistribuicao = "MENOS_OCUPADO"
	DistribuicaoManual       ModoDistribuicao = "MANUAL"
)

// FilaAtendimento é a configuração de uma fila + contadores vivos.
// A configuração vem do banco; os contadores (Aguardando, TempoMedioSegundos)
// são mantidos pelo fila.Service e gravados de volta como best effort.
type FilaAtendimento struct {
	ID                  int64            `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID              int64            `gorm:"not null;index" json:"user_id"` // tenant
	Nome                string           `gorm:"not null" json:"nome"`
	Padrao              bool             `gorm:"not null;default:false" json:"padrao"`
	Ativa               bool             `gorm:"not null;default:true" json:"ativa"`
	Distribuicao        ModoDistribuicao `gorm:"not null;default:'RODIZIO'" json:"distribuicao"`
	CapacidadeAtendente int              `gorm:"not null;default:5" json:"capacidade_atendente"`
	Aguardando          int              `gorm:"not null;default:0" json:"aguardando"`
	TempoMedioSegundos  float64          `gorm:"not null;default:0" json:"tempo_medio_segundos"`
	Atendentes          []FilaAtendente  `gorm:"foreignkey:FilaID" json:"atendentes,omitempty"`
	CreatedAt           *time.Time       `json:"created_at"`
	UpdatedAt           *time.Time       `json:"updated_at"`
}

// FilaAtendente liga um atendente a uma fila, com ordem estável
// (a ordem importa para o rodízio).
type FilaAtendente struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	FilaID      int64      `gorm:"not null;index" json:"fila_id"`
	AtendenteID int64      `gorm:"not null;index" json:"atendente_id"`
	Ordem       int        `gorm:"not null;default:0" json:"ordem"`
	CreatedAt   *time.Time `json:"created_at"`
}
