package controllers

import (
	"net/http"
	"strings"

	dbpkg "atende/db"
	"atende/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type upsertWhatsAppConfigReq struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	ApiVersion    string `json:"api_version"`
}

// PUT /whatsapp/config/:userId
// Upsert the tenant WhatsApp credentials.
// Returns only true.
func UpsertWhatsAppConfig(c *gin.Context) {
	userID, ok := ParamID(c, "userId")
	if !ok {
		return
	}

	var req upsertWhatsAppConfigReq
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	req.PhoneNumberID = strings.TrimSpace(req.PhoneNumberID)
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	req.ApiVersion = strings.TrimSpace(req.ApiVersion)
	if req.ApiVersion == "" {
		req.ApiVersion = "v24.0"
	}

	if req.PhoneNumberID == "" {
		RespondError(c, "phone_number_id é obrigatório", http.StatusBadRequest)
		return
	}
	if req.AccessToken == "" {
		RespondError(c, "access_token é obrigatório", http.StatusBadRequest)
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	var wa models.WhatsAppConfig
	err := db.Where("user_id = ?", userID).First(&wa).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			wa = models.WhatsAppConfig{
				UserID:        userID,
				PhoneNumberID: req.PhoneNumberID,
				AccessToken:   req.AccessToken,
				ApiVersion:    req.ApiVersion,
			}
			if err := db.Create(&wa).Error; err != nil {
				RespondError(c, err.Error(), http.StatusBadRequest)
				return
			}
			RespondSuccess(c, true)
			return
		}
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	if err := db.Model(&models.WhatsAppConfig{}).
		Where("id = ?", wa.ID).
		Updates(map[string]any{
			"phone_number_id": req.PhoneNumberID,
			"access_token":    req.AccessToken,
			"api_version":     req.ApiVersion,
		}).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	RespondSuccess(c, true)
}

// GET /whatsapp/config/:userId
// Returns the tenant config without the access token.
func GetWhatsAppConfig(c *gin.Context) {
	userID, ok := ParamID(c, "userId")
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	var wa models.WhatsAppConfig
	if err := db.Where("user_id = ?", userID).First(&wa).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			RespondError(c, "configuração não encontrada", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	wa.AccessToken = ""
	RespondSuccess(c, &wa)
}
