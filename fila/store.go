package fila

import (
	"atende/models"

	"github.com/jinzhu/gorm"
)

// Store é o colaborador de durabilidade do roteamento. O serviço opera
// sobre o estado em memória e grava mudanças como best effort; sessões
// não passam por aqui, só filas e itens.
type Store interface {
	SalvarItem(item *models.AtendimentoItem) error
	SalvarFila(f *models.FilaAtendimento) error
	ListarFilas() ([]models.FilaAtendimento, error)
}

// GormStore persiste filas e itens no banco relacional do produto.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SalvarItem(item *models.AtendimentoItem) error {
	return s.db.Save(item).Error
}

func (s *GormStore) SalvarFila(f *models.FilaAtendimento) error {
	return s.db.Save(f).Error
}

func (s *GormStore) ListarFilas() ([]models.FilaAtendimento, error) {
	var filas []models.FilaAtendimento
	err := s.db.Preload("Atendentes").Find(&filas).Error
	return filas, err
}
