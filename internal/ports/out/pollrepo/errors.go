package pollrepo

import "errors"

var (
	ErrNotFound      = errors.New("poll not found")
	ErrAlreadyExists = errors.New("poll already exists")
)
