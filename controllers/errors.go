package controllers

import (
	"errors"
	"net/http"

	"github.com/cheongsim/delivery-app/services"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrInvalidBody    = errors.New("invalid request body")
	ErrMenuNotFound   = errors.New("menu not found")
	ErrRiderNotFound  = errors.New("rider not found")
	ErrUnsupportedImg = errors.New("menuPicture must be a jpg, jpeg, png, gif or webp image")
)

// statusFor memetakan error service ke HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	utils.RespondError(c, code, err)
}
