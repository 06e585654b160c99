package apperr

import "errors"

var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrAborted       = errors.New("aborted")
	ErrMissingManage = errors.New("manage.py not found")
	ErrMissingVenv   = errors.New("virtual environment not found")
)
