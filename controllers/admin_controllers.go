package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPassphrase = errors.New("invalid passphrase")

type AdminController struct {
	Config *config.Config
	hash   []byte
}

// NewAdminController meng-hash passphrase sekali saat start-up
func NewAdminController(cfg *config.Config) (*AdminController, error) {
	ac := &AdminController{Config: cfg}
	if cfg.AdminAuthEnabled() {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassphrase), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		ac.hash = hash
	}
	return ac, nil
}

// Status -> GET /api/admin/status
func (ac *AdminController) Status(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Admin status", gin.H{
		"enabled": ac.Config.AdminAuthEnabled(),
	})
}

// Login -> POST /api/admin/login
func (ac *AdminController) Login(c *gin.Context) {
	if !ac.Config.AdminAuthEnabled() {
		utils.RespondJSON(c, http.StatusOK, "Admin guard disabled", gin.H{"enabled": false})
		return
	}

	var body struct {
		Passphrase string `json:"passphrase"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	if err := bcrypt.CompareHashAndPassword(ac.hash, []byte(body.Passphrase)); err != nil {
		utils.ErrorLogger.Printf("Failed admin login from %s", c.ClientIP())
		utils.RespondError(c, http.StatusUnauthorized, ErrInvalidPassphrase)
		return
	}

	token, expiresAt, err := utils.GenerateAdminToken([]byte(ac.Config.JWTSecret), ac.Config.AdminSessionTTL)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Admin login from %s", c.ClientIP())
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"enabled":   true,
		"token":     token,
		"expiresAt": expiresAt,
	})
}

// Logout -> POST /api/admin/logout, token dimasukkan ke blacklist
func (ac *AdminController) Logout(c *gin.Context) {
	token := c.GetString("token")
	if token != "" {
		expiry, ok := c.Get("token_expiry")
		exp, isTime := expiry.(time.Time)
		if !ok || !isTime {
			exp = time.Now().Add(ac.Config.AdminSessionTTL)
		}
		utils.BlacklistToken(token, exp)
	}
	utils.RespondJSON(c, http.StatusOK, "Logout successful", nil)
}
