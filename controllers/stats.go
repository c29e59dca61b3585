package controllers

import (
	"atende/dispatcher"
	"atende/fila"
	"atende/sessions"

	"github.com/gin-gonic/gin"
)

// StatsController junta os contadores operacionais num endpoint só,
// pro dashboard e pros smoke tests.
type StatsController struct {
	Disp    *dispatcher.MessageDispatcher
	Sessoes *sessions.Manager
	Filas   *fila.Service
}

func NewStatsController(disp *dispatcher.MessageDispatcher, sessoes *sessions.Manager, filas *fila.Service) *StatsController {
	return &StatsController{Disp: disp, Sessoes: sessoes, Filas: filas}
}

// GET /stats
func (s *StatsController) Get(c *gin.Context) {
	filas := gin.H{}
	for _, f := range s.Filas.Filas(0) {
		filas[f.Nome] = gin.H{
			"aguardando":       f.Aguardando,
			"finalizados_hoje": s.Filas.FinalizadosHoje(f.ID),
			"tempo_medio_seg":  f.TempoMedioSegundos,
		}
	}

	RespondSuccess(c, gin.H{
		"dispatcher":     s.Disp.GetStats(),
		"sessoes_ativas": s.Sessoes.Ativas(),
		"filas":          filas,
	})
}
