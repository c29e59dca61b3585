package router

import (
	"log"

	"atende/config"
	"atende/controllers"
	"atende/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers agrupa tudo que o router precisa, montado no main.
type Controllers struct {
	Webhook     *controllers.WebhookController
	Atendimento *controllers.AtendimentoController
	Filas       *controllers.FilaController
	Stats       *controllers.StatsController
}

// Initialize wires all routes and middlewares.
func Initialize(r *gin.Engine, cfg config.Configuration, ctrl Controllers) {
	_ = cfg

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	// Webhooks (Meta) - multi-tenant: /webhook/:userId
	// Mantém /webhook funcionando em dev via env WEBHOOK_DEFAULT_USER_ID
	api.GET("/webhook", ctrl.Webhook.Verify)
	api.POST("/webhook", ctrl.Webhook.UpdateWhatsApp)
	api.GET("/webhook/:userId", ctrl.Webhook.Verify)
	api.POST("/webhook/:userId", ctrl.Webhook.UpdateWhatsApp)
	api.GET("/instagram/webhook/:userId", ctrl.Webhook.Verify)
	api.POST("/instagram/webhook/:userId", ctrl.Webhook.UpdateInstagram)

	// Filas (cadastro)
	api.GET("/filas", Logger(), ctrl.Filas.List)
	api.POST("/filas", Logger(), ctrl.Filas.Create)
	api.PUT("/filas/:id", Logger(), ctrl.Filas.Update)
	api.GET("/filas/:id/itens", Logger(), ctrl.Atendimento.ItensDaFila)

	// Atendimentos (operação dos atendentes)
	api.POST("/atendimentos", Logger(), ctrl.Atendimento.Rotear)
	api.POST("/atendimentos/proximo", Logger(), ctrl.Atendimento.Proximo)
	api.GET("/atendimentos/:id", Logger(), ctrl.Atendimento.ItemByID)
	api.POST("/atendimentos/:id/atribuir", Logger(), ctrl.Atendimento.Atribuir)
	api.POST("/atendimentos/:id/finalizar", Logger(), ctrl.Atendimento.Finalizar)
	api.POST("/atendimentos/:id/transferir", Logger(), ctrl.Atendimento.Transferir)

	// WhatsApp credentials (tenant)
	api.PUT("/whatsapp/config/:userId", Logger(), controllers.UpsertWhatsAppConfig)
	api.GET("/whatsapp/config/:userId", Logger(), controllers.GetWhatsAppConfig)

	// Contadores operacionais
	api.GET("/stats", Logger(), ctrl.Stats.Get)

	log.Printf("Routes initialized")
}
