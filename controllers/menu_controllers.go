package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cheongsim/delivery-app/board"
	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsAllowedImage dipakai juga oleh route static /uploads
func IsAllowedImage(name string) bool {
	return allowedImageExt[strings.ToLower(filepath.Ext(name))]
}

type MenuController struct {
	DB        *gorm.DB
	UploadDir string
	Hub       *board.Hub
}

func NewMenuController(db *gorm.DB, uploadDir string, hub *board.Hub) *MenuController {
	return &MenuController{DB: db, UploadDir: uploadDir, Hub: hub}
}

type reviewInput struct {
	Text string `json:"reviewText"`
	Rank int    `json:"rank"`
}

func (r reviewInput) validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("reviewText is required")
	}
	if r.Rank < 1 || r.Rank > 5 {
		return errors.New("rank must be between 1 and 5")
	}
	return nil
}

// menuInput menampung field yang dikirim; nil berarti tidak diubah
type menuInput struct {
	Name        *string        `json:"menuName"`
	Price       *int64         `json:"menuPrice"`
	IsValid     *bool          `json:"isValid"`
	Description *string        `json:"menuDescription"`
	Reviews     *[]reviewInput `json:"reviews"`
}

func (in menuInput) validate(create bool) error {
	if create && in.Name == nil {
		return errors.New("menuName is required")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("menuName must not be empty")
	}
	if create && in.Price == nil {
		return errors.New("menuPrice is required")
	}
	if in.Price != nil && *in.Price < 0 {
		return errors.New("menuPrice must not be negative")
	}
	if in.Reviews != nil {
		for _, review := range *in.Reviews {
			if err := review.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindMenuInput membaca JSON atau multipart form (field gambar: menuPicture)
func bindMenuInput(c *gin.Context) (menuInput, *multipart.FileHeader, error) {
	var in menuInput

	if !strings.HasPrefix(c.ContentType(), "multipart/") &&
		c.ContentType() != "application/x-www-form-urlencoded" {
		if err := c.ShouldBindJSON(&in); err != nil {
			return in, nil, ErrInvalidBody
		}
		return in, nil, nil
	}

	// Batasi ukuran upload ke 10MB
	if err := c.Request.ParseMultipartForm(10 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return in, nil, ErrInvalidBody
	}

	if v, ok := c.GetPostForm("menuName"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("menuPrice"); ok {
		price, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return in, nil, errors.New("invalid menuPrice")
		}
		in.Price = &price
	}
	if v, ok := c.GetPostForm("isValid"); ok {
		valid, err := strconv.ParseBool(v)
		if err != nil {
			return in, nil, errors.New("invalid isValid")
		}
		in.IsValid = &valid
	}
	if v, ok := c.GetPostForm("menuDescription"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("reviews"); ok && strings.TrimSpace(v) != "" {
		var reviews []reviewInput
		if err := json.Unmarshal([]byte(v), &reviews); err != nil {
			return in, nil, errors.New("reviews must be a JSON array")
		}
		in.Reviews = &reviews
	}

	file, err := c.FormFile("menuPicture")
	if err != nil {
		// form urlencoded tidak membawa file
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil, nil
		}
		return in, nil, ErrInvalidBody
	}
	if !IsAllowedImage(file.Filename) {
		return in, nil, ErrUnsupportedImg
	}
	return in, file, nil
}

// saveImage menyimpan file dengan nama UUID dan mengembalikan path publiknya
func (mc *MenuController) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(mc.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, filepath.Join(mc.UploadDir, filename)); err != nil {
		return "", fmt.Errorf("error saving image: %w", err)
	}
	return "/uploads/" + filename, nil
}

// removeImage menghapus file gambar, kegagalan hanya dicatat
func (mc *MenuController) removeImage(publicPath *string) {
	if publicPath == nil || *publicPath == "" {
		return
	}
	local := filepath.Join(mc.UploadDir, filepath.Base(*publicPath))
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		utils.ErrorLogger.Printf("Error removing image %s: %v", local, err)
	}
}

func toReviews(inputs []reviewInput) []models.Review {
	reviews := make([]models.Review, 0, len(inputs))
	for _, r := range inputs {
		reviews = append(reviews, models.Review{Text: r.Text, Rank: r.Rank})
	}
	return reviews
}

func reviewsByDate(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (mc *MenuController) findMenu(id string) (*models.Menu, error) {
	var menu models.Menu
	if err := mc.DB.Preload("Reviews", reviewsByDate).First(&menu, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}
	return &menu, nil
}

// GetAllMenus
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	var menus []models.Menu
	if err := mc.DB.Preload("Reviews", reviewsByDate).Order("created_at ASC").Find(&menus).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

// GetMenuByID
func (mc *MenuController) GetMenuByID(c *gin.Context) {
	menu, err := mc.findMenu(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMenuNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", menu)
}

// CreateMenu
func (mc *MenuController) CreateMenu(c *gin.Context) {
	in, file, err := bindMenuInput(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := in.validate(true); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	menu := models.Menu{
		Name:    strings.TrimSpace(*in.Name),
		Price:   *in.Price,
		IsValid: true,
	}
	if in.IsValid != nil {
		menu.IsValid = *in.IsValid
	}
	if in.Description != nil {
		menu.Description = *in.Description
	}
	menu.Reviews = []models.Review{}
	if in.Reviews != nil {
		menu.Reviews = toReviews(*in.Reviews)
	}

	if file != nil {
		path, err := mc.saveImage(c, file)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		menu.PicturePath = &path
	}

	if err := mc.DB.Create(&menu).Error; err != nil {
		// Hapus gambar yang sudah diupload jika gagal membuat menu
		mc.removeImage(menu.PicturePath)
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.Hub.MenuUpdated(menu.ID)
	utils.RespondJSON(c, http.StatusCreated, "Menu created", menu)
}

// UpdateMenu hanya mengubah field yang dikirim
func (mc *MenuController) UpdateMenu(c *gin.Context) {
	menu, err := mc.findMenu(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMenuNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	in, file, err := bindMenuInput(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := in.validate(false); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.IsValid != nil {
		updates["is_valid"] = *in.IsValid
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}

	oldPicture := menu.PicturePath
	var newPicture *string
	if file != nil {
		path, err := mc.saveImage(c, file)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		newPicture = &path
		updates["picture_path"] = path
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Menu{}).Where("id = ?", menu.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Reviews != nil {
			if err := tx.Where("menu_id = ?", menu.ID).Delete(&models.Review{}).Error; err != nil {
				return err
			}
			reviews := toReviews(*in.Reviews)
			for i := range reviews {
				reviews[i].MenuID = menu.ID
			}
			if len(reviews) > 0 {
				if err := tx.Create(&reviews).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		mc.removeImage(newPicture)
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if newPicture != nil {
		mc.removeImage(oldPicture)
	}

	updated, err := mc.findMenu(menu.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.Hub.MenuUpdated(menu.ID)
	utils.RespondJSON(c, http.StatusOK, "Menu updated", updated)
}

// DeleteMenu tidak menyentuh order yang mereferensikan menu ini
func (mc *MenuController) DeleteMenu(c *gin.Context) {
	menu, err := mc.findMenu(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMenuNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_id = ?", menu.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Menu{}, "id = ?", menu.ID).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	mc.removeImage(menu.PicturePath)

	mc.Hub.MenuUpdated(menu.ID)
	utils.RespondJSON(c, http.StatusOK, "Menu deleted", nil)
}

// AddReview menambahkan satu review ke menu
func (mc *MenuController) AddReview(c *gin.Context) {
	menu, err := mc.findMenu(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMenuNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var in reviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidBody)
		return
	}
	if err := in.validate(); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	review := models.Review{MenuID: menu.ID, Text: in.Text, Rank: in.Rank}
	if err := mc.DB.Create(&review).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.Hub.MenuUpdated(menu.ID)
	utils.RespondJSON(c, http.StatusCreated, "Review added", review)
}
