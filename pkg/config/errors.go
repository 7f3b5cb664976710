package config

import "errors"

var (
	ErrValidationFailed = errors.New("config validation failed")
	ErrNilConfig        = errors.New("config cannot be nil")
	// ErrFileNotFound 显式指定的配置文件不存在
	ErrFileNotFound = errors.New("config file not found")
)
