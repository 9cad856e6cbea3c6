package entity

import "errors"

var (
	ErrEmptySource  = errors.New("image source is empty")
	ErrNotCDN       = errors.New("image is not served by the CDN")
	ErrInvalidInput = errors.New("invalid input")
	ErrTaskNotFound = errors.New("warm task not found")
)
