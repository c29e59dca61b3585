package controllers

import (
	"errors"
	"net/http"
	"strings"

	"atende/fila"

	"github.com/gin-gonic/gin"
)

// AtendimentoController expõe as operações da fila de atendimento humano
// para o painel dos atendentes.
type AtendimentoController struct {
	Filas *fila.Service
}

func NewAtendimentoController(filas *fila.Service) *AtendimentoController {
	return &AtendimentoController{Filas: filas}
}

func respondFilaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fila.ErrFilaNaoEncontrada), errors.Is(err, fila.ErrItemNaoEncontrado):
		RespondError(c, err.Error(), http.StatusNotFound)
	case errors.Is(err, fila.ErrTransicaoInvalida):
		RespondError(c, err.Error(), http.StatusConflict)
	default:
		RespondError(c, err.Error(), http.StatusBadRequest)
	}
}

type rotearReq struct {
	ConversaID string `json:"conversa_id"`
	ContatoID  string `json:"contato_id"`
	UserID     int64  `json:"user_id"`
	FilaID     *int64 `json:"fila_id"`
	Prioridade int    `json:"prioridade"`
	Motivo     string `json:"motivo"`
}

// POST /atendimentos
func (a *AtendimentoController) Rotear(c *gin.Context) {
	var req rotearReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ConversaID) == "" {
		RespondError(c, "conversa_id é obrigatório", http.StatusBadRequest)
		return
	}

	item, err := a.Filas.Rotear(req.ConversaID, req.ContatoID, req.UserID, req.FilaID, req.Prioridade, req.Motivo)
	if err != nil {
		respondFilaError(c, err)
		return
	}
	RespondSuccess(c, item)
}

type atribuirReq struct {
	AtendenteID int64 `json:"atendente_id"`
}

// POST /atendimentos/:id/atribuir
func (a *AtendimentoController) Atribuir(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("id"))
	if itemID == "" {
		RespondError(c, "id é obrigatório", http.StatusBadRequest)
		return
	}

	var req atribuirReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AtendenteID <= 0 {
		RespondError(c, "atendente_id inválido", http.StatusBadRequest)
		return
	}

	item, err := a.Filas.Atribuir(itemID, req.AtendenteID)
	if err != nil {
		respondFilaError(c, err)
		return
	}
	RespondSuccess(c, item)
}

type finalizarReq struct {
	Avaliacao *int   `json:"avaliacao"`
	Feedback  string `json:"feedback"`
}

// POST /atendimentos/:id/finalizar
func (a *AtendimentoController) Finalizar(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("id"))
	if itemID == "" {
		RespondError(c, "id é obrigatório", http.StatusBadRequest)
		return
	}

	var req finalizarReq
	_ = c.Bind(&req) // corpo opcional

	if req.Avaliacao != nil && (*req.Avaliacao < 1 || *req.Avaliacao > 5) {
		RespondError(c, "avaliacao deve estar entre 1 e 5", http.StatusBadRequest)
		return
	}

	item, err := a.Filas.Finalizar(itemID, req.Avaliacao, req.Feedback)
	if err != nil {
		respondFilaError(c, err)
		return
	}
	RespondSuccess(c, item)
}

type transferirReq struct {
	FilaID      *int64 `json:"fila_id"`
	AtendenteID *int64 `json:"atendente_id"`
	Motivo      string `json:"motivo"`
}

// POST /atendimentos/:id/transferir
func (a *AtendimentoController) Transferir(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("id"))
	if itemID == "" {
		RespondError(c, "id é obrigatório", http.StatusBadRequest)
		return
	}

	var req transferirReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FilaID == nil && req.AtendenteID == nil {
		RespondError(c, "informe fila_id ou atendente_id de destino", http.StatusBadRequest)
		return
	}

	item, err := a.Filas.Transferir(itemID, req.FilaID, req.AtendenteID, req.Motivo)
	if err != nil {
		respondFilaError(c, err)
		return
	}
	RespondSuccess(c, item)
}

type proximoReq struct {
	AtendenteID int64  `json:"atendente_id"`
	FilaID      *int64 `json:"fila_id"`
}

// POST /atendimentos/proximo
// "Puxar próximo": entrega o item aguardando de maior prioridade pro
// atendente, respeitando a capacidade dele.
func (a *AtendimentoController) Proximo(c *gin.Context) {
	var req proximoReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AtendenteID <= 0 {
		RespondError(c, "atendente_id inválido", http.StatusBadRequest)
		return
	}

	item, err := a.Filas.ProximoParaAtendente(req.AtendenteID, req.FilaID)
	if err != nil {
		respondFilaError(c, err)
		return
	}
	if item == nil {
		// nada aguardando (ou atendente no limite): não é erro
		RespondSuccess(c, gin.H{"item": nil})
		return
	}
	RespondSuccess(c, item)
}

// GET /filas/:id/itens
func (a *AtendimentoController) ItensDaFila(c *gin.Context) {
	filaID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if _, found := a.Filas.Fila(filaID); !found {
		RespondError(c, fila.ErrFilaNaoEncontrada.Error(), http.StatusNotFound)
		return
	}
	RespondSuccess(c, a.Filas.ItensDaFila(filaID))
}

// GET /atendimentos/:id
func (a *AtendimentoController) ItemByID(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("id"))
	item, found := a.Filas.Item(itemID)
	if !found {
		RespondError(c, fila.ErrItemNaoEncontrado.Error(), http.StatusNotFound)
		return
	}
	RespondSuccess(c, item)
}
