package controllers

import (
	"net/http"
	"strconv"
	"strings"

	dbpkg "atende/db"
	"atende/fila"
	"atende/models"

	"github.com/gin-gonic/gin"
)

// FilaController mantém o cadastro de filas (persistido via gorm) e o
// espelha no serviço de distribuição em memória.
type FilaController struct {
	Filas *fila.Service
}

func NewFilaController(filas *fila.Service) *FilaController {
	return &FilaController{Filas: filas}
}

type filaAtendenteReq struct {
	AtendenteID int64 `json:"atendente_id"`
	Ordem       int   `json:"ordem"`
}

type upsertFilaReq struct {
	UserID              int64                   `json:"user_id"`
	Nome                string                  `json:"nome"`
	Padrao              bool                    `json:"padrao"`
	Ativa               *bool                   `json:"ativa"`
	Distribuicao        models.ModoDistribuicao `json:"distribuicao"`
	CapacidadeAtendente int                     `json:"capacidade_atendente"`
	Atendentes          []filaAtendenteReq      `json:"atendentes"`
}

// GET /filas?user_id=N
func (f *FilaController) List(c *gin.Context) {
	var userID int64
	if v := strings.TrimSpace(c.Query("user_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			RespondError(c, "user_id inválido", http.StatusBadRequest)
			return
		}
		userID = id
	}
	RespondSuccess(c, f.Filas.Filas(userID))
}

// POST /filas
func (f *FilaController) Create(c *gin.Context) {
	var req upsertFilaReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	req.Nome = strings.TrimSpace(req.Nome)
	if req.Nome == "" {
		RespondError(c, "nome é obrigatório", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		RespondError(c, "user_id inválido", http.StatusBadRequest)
		return
	}
	switch req.Distribuicao {
	case "":
		req.Distribuicao = models.DistribuicaoRodizio
	case models.DistribuicaoRodizio, models.DistribuicaoMenosOcupado, models.DistribuicaoManual:
	default:
		RespondError(c, "distribuicao inválida", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	nova := models.FilaAtendimento{
		UserID:              req.UserID,
		Nome:                req.Nome,
		Padrao:              req.Padrao,
		Ativa:               true,
		Distribuicao:        req.Distribuicao,
		CapacidadeAtendente: req.CapacidadeAtendente,
	}
	if req.Ativa != nil {
		nova.Ativa = *req.Ativa
	}
	for _, a := range req.Atendentes {
		nova.Atendentes = append(nova.Atendentes, models.FilaAtendente{
			AtendenteID: a.AtendenteID,
			Ordem:       a.Ordem,
		})
	}

	if err := db.Create(&nova).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	f.Filas.RegistrarFila(&nova)
	RespondSuccess(c, &nova)
}

// PUT /filas/:id
// Substitui nome, política e lista de atendentes da fila.
func (f *FilaController) Update(c *gin.Context) {
	filaID, ok := ParamID(c, "id")
	if !ok {
		return
	}

	atual, found := f.Filas.Fila(filaID)
	if !found {
		RespondError(c, fila.ErrFilaNaoEncontrada.Error(), http.StatusNotFound)
		return
	}

	var req upsertFilaReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	if nome := strings.TrimSpace(req.Nome); nome != "" {
		atual.Nome = nome
	}
	if req.Distribuicao != "" {
		switch req.Distribuicao {
		case models.DistribuicaoRodizio, models.DistribuicaoMenosOcupado, models.DistribuicaoManual:
			atual.Distribuicao = req.Distribuicao
		default:
			RespondError(c, "distribuicao inválida", http.StatusBadRequest)
			return
		}
	}
	if req.CapacidadeAtendente > 0 {
		atual.CapacidadeAtendente = req.CapacidadeAtendente
	}
	if req.Ativa != nil {
		atual.Ativa = *req.Ativa
	}
	atual.Padrao = req.Padrao
	if req.Atendentes != nil {
		atual.Atendentes = atual.Atendentes[:0]
		for _, a := range req.Atendentes {
			atual.Atendentes = append(atual.Atendentes, models.FilaAtendente{
				FilaID:      atual.ID,
				AtendenteID: a.AtendenteID,
				Ordem:       a.Ordem,
			})
		}
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}
	if err := db.Save(atual).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	f.Filas.RegistrarFila(atual)
	RespondSuccess(c, atual)
}
