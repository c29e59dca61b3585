package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"atende/dispatcher"
	"atende/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WebhookController recebe os updates dos provedores (Meta) e entrega o
// payload bruto pro dispatcher, que agrupa e despacha.
type WebhookController struct {
	Disp *dispatcher.MessageDispatcher
}

func NewWebhookController(disp *dispatcher.MessageDispatcher) *WebhookController {
	return &WebhookController{Disp: disp}
}

func resolveWebhookUserID(c *gin.Context) (int64, error) {
	// /webhook/:userId
	param := strings.TrimSpace(c.Param("userId"))
	if param != "" {
		return strconv.ParseInt(param, 10, 64)
	}

	// fallback para dev (mantém /webhook funcionando localmente)
	def := strings.TrimSpace(os.Getenv("WEBHOOK_DEFAULT_USER_ID"))
	if def == "" {
		return 0, fmt.Errorf("missing userId param and WEBHOOK_DEFAULT_USER_ID not set")
	}
	return strconv.ParseInt(def, 10, 64)
}

// verifyMetaSignature validates the request body against Meta's signature header.
//
// WhatsApp/Graph Webhooks typically send: X-Hub-Signature-256: sha256=<hex>
// The secret should be your Meta App Secret (NOT the WhatsApp access token).
func verifyMetaSignature(c *gin.Context, rawBody []byte) (bool, string) {
	// Prefer a dedicated env var for webhook signature secret.
	// Keep multiple names for ops convenience.
	secret := strings.TrimSpace(os.Getenv("WEBHOOK_APP_SECRET"))
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("WHATSAPP_APP_SECRET"))
	}
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("META_APP_SECRET"))
	}
	if secret == "" {
		// Sem secret configurado a verificação fica desligada (dev).
		return true, ""
	}

	sig := strings.TrimSpace(c.GetHeader("X-Hub-Signature-256"))
	if sig == "" {
		// Some products also send X-Hub-Signature (sha1), but we enforce sha256.
		return false, "missing X-Hub-Signature-256"
	}
	if !strings.HasPrefix(sig, "sha256=") {
		return false, "invalid X-Hub-Signature-256 format"
	}

	providedHex := strings.TrimPrefix(sig, "sha256=")
	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return false, "invalid signature hex"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)

	if !hmac.Equal(provided, expected) {
		return false, "signature mismatch"
	}

	return true, ""
}

// GET /webhook e GET /webhook/:userId
func (w *WebhookController) Verify(c *gin.Context) {
	verifyToken := os.Getenv("WEBHOOK_VERIFY_TOKEN")
	if verifyToken == "" {
		RespondError(c, "WEBHOOK_VERIFY_TOKEN not set", http.StatusInternalServerError)
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	tokenOK := subtle.ConstantTimeCompare([]byte(token), []byte(verifyToken)) == 1

	fmt.Printf("[WA][VERIFY] path=%s mode=%s token_ok=%v challenge=%s\n",
		c.FullPath(), mode, tokenOK, challenge)

	if mode == "subscribe" && tokenOK && challenge != "" {
		c.String(http.StatusOK, "%s", challenge)
		return
	}

	RespondError(c, "forbidden", http.StatusForbidden)
}

// POST /webhook e POST /webhook/:userId
func (w *WebhookController) UpdateWhatsApp(c *gin.Context) {
	w.update(c, models.CanalWhatsApp)
}

// POST /webhook/instagram/:userId
func (w *WebhookController) UpdateInstagram(c *gin.Context) {
	w.update(c, models.CanalInstagram)
}

func (w *WebhookController) update(c *gin.Context, canal models.Canal) {
	userID, err := resolveWebhookUserID(c)
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	// Read raw body once so we can validate Meta signature.
	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	if ok, reason := verifyMetaSignature(c, raw); !ok {
		RespondError(c, "forbidden: "+reason, http.StatusForbidden)
		return
	}

	// responde rápido pro Meta; o parse e o agrupamento acontecem depois
	c.String(http.StatusOK, "EVENT_RECEIVED")

	n := w.Disp.EnqueueWebhookPayload(canal, raw, userID, "")
	logrus.WithFields(logrus.Fields{
		"canal":        canal,
		"user_id":      userID,
		"enfileiradas": n,
	}).Debug("webhook processado")
}
