package services

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrNotificationFailed = errors.New("notification failed")
)

// MenuNotFoundError dikembalikan saat order mereferensikan menu yang tidak ada
type MenuNotFoundError struct {
	MenuID string
}

func (e *MenuNotFoundError) Error() string {
	return "menu item not found: " + e.MenuID
}

func (e *MenuNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
