package models

import "time"

/************************************************
/**** MARK: CANAIS ****/
/************************************************/

// Canal identifica a origem de uma mensagem inbound.
type Canal string

const (
	CanalWhatsApp  Canal = "whatsapp"
	CanalInstagram Canal = "instagram"
	CanalFacebook  Canal = "facebook"
	CanalWebChat   Canal = "webchat"
	CanalEmail     Canal = "email"
	CanalSMS       Canal = "sms"
)

/************************************************
/**** MARK: TIPOS DE MENSAGEM ****/
/************************************************/

type TipoMensagem string

const (
	TipoTexto       TipoMensagem = "text"
	TipoImagem      TipoMensagem = "image"
	TipoAudio       TipoMensagem = "audio"
	TipoDocumento   TipoMensagem = "document"
	TipoLocalizacao TipoMensagem = "location"
	TipoInterativo  TipoMensagem = "interactive"
)

// EhTexto diz se o conteúdo entra no texto combinado do grupo.
func (t TipoMensagem) EhTexto() bool {
	return t == TipoTexto || t == TipoInterativo
}

// QueuedMessage é uma mensagem inbound normalizada, criada no parse do webhook.
// Imutável depois de criada; pertence ao buffer de agrupamento até ser consumida.
type QueuedMessage struct {
	Canal      Canal             `json:"canal"`
	SenderID   string            `json:"sender_id"` // telefone, IG id, etc (escopo do canal)
	Conteudo   string            `json:"conteudo"`
	Tipo       TipoMensagem      `json:"tipo"`
	MediaURL   string            `json:"media_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	RecebidaEm time.Time         `json:"recebida_em"`
	UserID     int64             `json:"user_id"` // tenant
	ChannelID  string            `json:"channel_id"`
}
