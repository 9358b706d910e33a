package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var riderNumberPattern = regexp.MustCompile(`^[0-9]{1,20}$`)

type RiderController struct {
	DB *gorm.DB
}

func NewRiderController(db *gorm.DB) *RiderController {
	return &RiderController{DB: db}
}

type riderInput struct {
	Name   *string `json:"riderName"`
	Number *string `json:"riderNumber"`
}

func (in riderInput) validate(create bool) error {
	if create && (in.Name == nil || in.Number == nil) {
		return errors.New("riderName and riderNumber are required")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("riderName must not be empty")
	}
	if in.Number != nil && !riderNumberPattern.MatchString(*in.Number) {
		return errors.New("riderNumber must contain 1 to 20 digits")
	}
	return nil
}

func (rc *RiderController) findRider(c *gin.Context) (*models.Rider, bool) {
	var rider models.Rider
	if err := rc.DB.First(&rider, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, ErrRiderNotFound)
			return nil, false
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return &rider, true
}

// GetAllRiders
func (rc *RiderController) GetAllRiders(c *gin.Context) {
	var riders []models.Rider
	if err := rc.DB.Order("created_at ASC").Find(&riders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of riders", riders)
}

// GetRiderByID
func (rc *RiderController) GetRiderByID(c *gin.Context) {
	rider, ok := rc.findRider(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Rider detail", rider)
}

// CreateRider
func (rc *RiderController) CreateRider(c *gin.Context) {
	var in riderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}
	if err := in.validate(true); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	rider := models.Rider{
		Name:   strings.TrimSpace(*in.Name),
		Number: *in.Number,
	}
	if err := rc.DB.Create(&rider).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Rider created", rider)
}

// UpdateRider
func (rc *RiderController) UpdateRider(c *gin.Context) {
	rider, ok := rc.findRider(c)
	if !ok {
		return
	}

	var in riderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}
	if err := in.validate(false); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if in.Name != nil {
		rider.Name = strings.TrimSpace(*in.Name)
	}
	if in.Number != nil {
		rider.Number = *in.Number
	}
	if err := rc.DB.Save(rider).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Rider updated", rider)
}

// DeleteRider tidak mempengaruhi order lama
func (rc *RiderController) DeleteRider(c *gin.Context) {
	rider, ok := rc.findRider(c)
	if !ok {
		return
	}
	if err := rc.DB.Delete(rider).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Rider deleted", nil)
}
