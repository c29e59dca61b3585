package workers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"atende/dispatcher"
	"atende/fila"
	"atende/models"
	"atende/sessions"
	"atende/tools"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const (
	msgTransferencia = "Certo! Vou te passar para um de nossos atendentes. Aguarde um instante, por favor."
	msgErroBot       = "Desculpe, tive um problema ao gerar a resposta."
	msgEscalacaoErro = "Estou com dificuldade por aqui. Vou te passar para um atendente humano."
	msgOfertaHumano  = "\n\nSe preferir falar com um atendente humano, é só me dizer."
	msgSemAtendente  = "No momento não há atendentes disponíveis, mas você já está na fila. Respondemos assim que possível."
)

// enviador abstrai o transporte de saída de cada canal.
type enviador func(ctx context.Context, userID int64, to, texto string) error

// NovoProcessadorWhatsApp monta o handler registrado no dispatcher para o
// canal WhatsApp: recebe o burst consolidado, roda a máquina de estados da
// sessão e decide entre resposta do bot, prompt de coleta ou escalação
// para a fila humana, enviando a saída pelo Cloud API do tenant.
func NovoProcessadorWhatsApp(db *gorm.DB, sessoes *sessions.Manager, filas *fila.Service) dispatcher.Handler {
	return novoProcessador(models.CanalWhatsApp, sessoes, filas, func(ctx context.Context, userID int64, to, texto string) error {
		return enviarWhatsApp(ctx, db, userID, to, texto)
	})
}

// NovoProcessadorInstagram roda a mesma máquina de estados para o Instagram.
// O envio pela Graph API de mensagens do IG ainda não está plugado, então a
// resposta fica só no log (a escalação para a fila funciona normalmente).
func NovoProcessadorInstagram(sessoes *sessions.Manager, filas *fila.Service) dispatcher.Handler {
	return novoProcessador(models.CanalInstagram, sessoes, filas, func(ctx context.Context, userID int64, to, texto string) error {
		logrus.WithFields(logrus.Fields{"to": to, "texto": texto}).Info("workers: resposta instagram sem transporte de saída")
		return nil
	})
}

func novoProcessador(canal models.Canal, sessoes *sessions.Manager, filas *fila.Service, enviar enviador) dispatcher.Handler {
	return func(senderID, texto string, mensagens, midia []models.QueuedMessage, userID int64, channelID string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		conversaID := fmt.Sprintf("%s:%s", canal, senderID)
		sessao := sessoes.GetOrCreate(conversaID, senderID, userID, models.ModoAssistenteVirtual)

		// humano ativo: o bot não responde, só registra atividade
		if sessao.Modo == models.ModoAtendenteHumano {
			return nil
		}

		res := sessoes.ProcessMessage(sessao, texto)

		if res.Escalar {
			sessoes.TransferirParaHumano(sessao, string(res.Motivo), nil)
			item := escalarParaFila(filas, conversaID, senderID, userID, string(res.Motivo))
			msg := msgTransferencia
			if item != nil && item.Status == models.AtendimentoAguardando {
				msg = msgSemAtendente
			}
			return enviar(ctx, userID, senderID, msg)
		}

		// sub-fluxo de coleta: a resposta já vem pronta do manager
		if res.Resposta != "" {
			return enviar(ctx, userID, senderID, res.Resposta)
		}

		// burst só de mídia: nada para o bot responder
		if strings.TrimSpace(texto) == "" {
			return nil
		}

		reply, err := tools.GenerateAIReply(ctx, texto)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"conversa": conversaID,
				"tenant":   userID,
			}).WithError(err).Error("workers: erro do bot")

			if sessoes.RegistrarErroBot(sessao) {
				sessoes.TransferirParaHumano(sessao, string(sessions.MotivoErrosBot), nil)
				escalarParaFila(filas, conversaID, senderID, userID, string(sessions.MotivoErrosBot))
				return enviar(ctx, userID, senderID, msgEscalacaoErro)
			}
			reply = msgErroBot
		}

		if res.OferecerHumano {
			reply += msgOfertaHumano
		}

		return enviar(ctx, userID, senderID, reply)
	}
}

// escalarParaFila roteia a conversa para a fila humana; se nenhuma fila
// resolve, o usuário fica em serviço degradado (sem atendente), nunca erro.
func escalarParaFila(filas *fila.Service, conversaID, contatoID string, userID int64, motivo string) *models.AtendimentoItem {
	item, err := filas.Rotear(conversaID, contatoID, userID, nil, 0, motivo)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"conversa": conversaID,
			"tenant":   userID,
		}).WithError(err).Warn("workers: escalação sem fila disponível")
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"conversa": conversaID,
		"item":     item.ID,
		"status":   item.Status,
	}).Info("workers: conversa escalada")
	return item
}

// enviarWhatsApp resolve o WhatsAppConfig do tenant e envia pelo Cloud API.
// POC_NO_WHATSAPP=true pula o envio (útil em dev, como no restante do produto).
func enviarWhatsApp(ctx context.Context, db *gorm.DB, userID int64, to string, texto string) error {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("POC_NO_WHATSAPP")), "true") {
		logrus.WithFields(logrus.Fields{"to": to, "texto": texto}).Info("workers: POC_NO_WHATSAPP, envio pulado")
		return nil
	}
	if db == nil {
		return fmt.Errorf("db não configurado para envio")
	}

	var wa models.WhatsAppConfig
	if err := db.Where("user_id = ?", userID).First(&wa).Error; err != nil {
		return fmt.Errorf("whatsapp config do tenant %d: %w", userID, err)
	}

	client := tools.WhatsAppClient{
		AccessToken:   wa.AccessToken,
		ApiVersion:    wa.ApiVersion,
		PhoneNumberID: wa.PhoneNumberID,
	}
	if err := client.SendText(ctx, to, texto); err != nil {
		return fmt.Errorf("enviar whatsapp: %w", err)
	}
	return nil
}
