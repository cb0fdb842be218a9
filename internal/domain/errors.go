package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateIdentifier    = errors.New("asset identifier already exists")
	ErrInvalidOwnershipFields = errors.New("ownership fields are inconsistent")
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrAssetUnavailable       = errors.New("asset is not available")
	ErrSessionNotActive       = errors.New("session is not active")
	ErrAssetNotFound          = errors.New("asset not found")
	ErrHasActiveSession       = errors.New("asset has an active session")
	ErrSessionNotFound        = errors.New("session not found")
	ErrAlertNotFound          = errors.New("alert not found")
	ErrInvalidInput           = errors.New("invalid input")

	// ErrMalformedSignal 无法解析的定位信号按未知资产处理
	ErrMalformedSignal = fmt.Errorf("malformed location signal: %w", ErrAssetNotFound)
)
