package domain

import "errors"

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrProcessNotFound  = errors.New("process not found")
	ErrInvalidStatus    = errors.New("invalid job status")
	ErrInvalidParameter = errors.New("invalid parameter")
)
