package dispatcher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"atende/models"

	"github.com/sirupsen/logrus"
)

// Estrutura mínima do webhook do WhatsApp Cloud API
// (entry[].changes[].value.{messages[],contacts[]}).
type whatsAppPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Metadata         struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text,omitempty"`
					Image    *whatsAppMedia `json:"image,omitempty"`
					Audio    *whatsAppMedia `json:"audio,omitempty"`
					Document *whatsAppMedia `json:"document,omitempty"`
					Location *struct {
						Latitude  float64 `json:"latitude"`
						Longitude float64 `json:"longitude"`
						Name      string  `json:"name"`
					} `json:"location,omitempty"`
					Interactive *struct {
						Type        string `json:"type"`
						ButtonReply *struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply,omitempty"`
						ListReply *struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"list_reply,omitempty"`
					} `json:"interactive,omitempty"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type whatsAppMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Estrutura mínima do Instagram Messaging
// (entry[].messaging[].{sender.id, message.{text, attachments[]}}).
type instagramPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				MID         string `json:"mid"`
				Text        string `json:"text"`
				Attachments []struct {
					Type    string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// EnqueueWebhookPayload faz o parse de um payload bruto do provedor e enfileira
// cada mensagem extraída. Payload malformado é logado e descartado; sub-tipos
// não suportados degradam para um resumo textual em vez de derrubar o payload.
// Retorna quantas mensagens foram enfileiradas.
func (d *MessageDispatcher) EnqueueWebhookPayload(canal models.Canal, raw []byte, userID int64, channelID string) int {
	var msgs []models.QueuedMessage

	switch canal {
	case models.CanalWhatsApp:
		msgs = parseWhatsAppPayload(raw, userID, channelID)
	case models.CanalInstagram:
		msgs = parseInstagramPayload(raw, userID, channelID)
	default:
		logrus.WithField("canal", canal).Warn("dispatcher: canal sem parser de webhook")
		return 0
	}

	enfileiradas := 0
	for _, m := range msgs {
		if err := d.Enqueue(m); err != nil {
			logrus.WithFields(logrus.Fields{
				"canal":  canal,
				"sender": m.SenderID,
			}).WithError(err).Warn("dispatcher: enqueue recusado")
			continue
		}
		enfileiradas++
	}
	return enfileiradas
}

func parseWhatsAppPayload(raw []byte, userID int64, channelID string) []models.QueuedMessage {
	var payload whatsAppPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logrus.WithError(err).Warn("dispatcher: payload whatsapp inválido, descartado")
		return nil
	}

	var out []models.QueuedMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if strings.TrimSpace(change.Field) != "messages" && change.Field != "" {
				continue
			}
			nomes := map[string]string{}
			for _, c := range change.Value.Contacts {
				nomes[c.WaID] = c.Profile.Name
			}
			chID := channelID
			if chID == "" {
				chID = change.Value.Metadata.PhoneNumberID
			}
			for _, m := range change.Value.Messages {
				// RecebidaEm é o instante de chegada aqui, não o timestamp
				// do provedor (que pode vir atrasado e furaria o debounce).
				qm := models.QueuedMessage{
					Canal:      models.CanalWhatsApp,
					SenderID:   strings.TrimSpace(m.From),
					RecebidaEm: time.Now(),
					UserID:     userID,
					ChannelID:  chID,
					Metadata:   map[string]string{"message_id": m.ID},
				}
				if ts := strings.TrimSpace(m.Timestamp); ts != "" {
					qm.Metadata["provider_timestamp"] = ts
				}
				if nome := nomes[m.From]; nome != "" {
					qm.Metadata["contact_name"] = nome
				}

				switch strings.ToLower(strings.TrimSpace(m.Type)) {
				case "text":
					qm.Tipo = models.TipoTexto
					if m.Text != nil {
						qm.Conteudo = m.Text.Body
					}
				case "image":
					qm.Tipo = models.TipoImagem
					if m.Image != nil {
						qm.MediaURL = m.Image.ID
						qm.Conteudo = m.Image.Caption
					}
				case "audio":
					qm.Tipo = models.TipoAudio
					if m.Audio != nil {
						qm.MediaURL = m.Audio.ID
					}
				case "document":
					qm.Tipo = models.TipoDocumento
					if m.Document != nil {
						qm.MediaURL = m.Document.ID
						qm.Conteudo = m.Document.Filename
					}
				case "location":
					qm.Tipo = models.TipoLocalizacao
					if m.Location != nil {
						qm.Conteudo = fmt.Sprintf("%f,%f %s", m.Location.Latitude, m.Location.Longitude, m.Location.Name)
					}
				case "interactive":
					qm.Tipo = models.TipoInterativo
					if m.Interactive != nil {
						if m.Interactive.ButtonReply != nil {
							qm.Conteudo = m.Interactive.ButtonReply.Title
							qm.Metadata["reply_id"] = m.Interactive.ButtonReply.ID
						} else if m.Interactive.ListReply != nil {
							qm.Conteudo = m.Interactive.ListReply.Title
							qm.Metadata["reply_id"] = m.Interactive.ListReply.ID
						}
					}
				default:
					// sticker, video, contacts, etc: degrada para resumo textual
					qm.Tipo = models.TipoTexto
					qm.Conteudo = fmt.Sprintf("[mensagem do tipo %q não suportada]", m.Type)
				}

				if qm.SenderID == "" {
					continue
				}
				out = append(out, qm)
			}
		}
	}
	return out
}

func parseInstagramPayload(raw []byte, userID int64, channelID string) []models.QueuedMessage {
	var payload instagramPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logrus.WithError(err).Warn("dispatcher: payload instagram inválido, descartado")
		return nil
	}

	var out []models.QueuedMessage
	for _, entry := range payload.Entry {
		chID := channelID
		if chID == "" {
			chID = entry.ID
		}
		for _, ev := range entry.Messaging {
			sender := strings.TrimSpace(ev.Sender.ID)
			if sender == "" {
				continue
			}

			if texto := strings.TrimSpace(ev.Message.Text); texto != "" {
				out = append(out, models.QueuedMessage{
					Canal:      models.CanalInstagram,
					SenderID:   sender,
					Conteudo:   texto,
					Tipo:       models.TipoTexto,
					Metadata:   map[string]string{"message_id": ev.Message.MID},
					RecebidaEm: time.Now(),
					UserID:     userID,
					ChannelID:  chID,
				})
			}

			for _, att := range ev.Message.Attachments {
				qm := models.QueuedMessage{
					Canal:      models.CanalInstagram,
					SenderID:   sender,
					MediaURL:   att.Payload.URL,
					Metadata:   map[string]string{"message_id": ev.Message.MID},
					RecebidaEm: time.Now(),
					UserID:     userID,
					ChannelID:  chID,
				}
				switch strings.ToLower(att.Type) {
				case "image":
					qm.Tipo = models.TipoImagem
				case "audio":
					qm.Tipo = models.TipoAudio
				case "file":
					qm.Tipo = models.TipoDocumento
				default:
					qm.Tipo = models.TipoTexto
					qm.Conteudo = fmt.Sprintf("[anexo do tipo %q não suportado]", att.Type)
					qm.MediaURL = ""
				}
				out = append(out, qm)
			}
		}
	}
	return out
}
