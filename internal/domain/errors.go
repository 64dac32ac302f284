package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrUserInactive        = errors.New("user is inactive")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile           = errors.New("file is empty")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrQuotaExceeded       = errors.New("plan receipt quota exceeded")
	ErrDuplicateAlias      = errors.New("forwarding alias already taken")
	ErrAliasExhausted      = errors.New("could not derive a unique forwarding alias")
	ErrReceiptTerminal     = errors.New("receipt is already in a terminal status")
	ErrBotNotLinked        = errors.New("chat is not linked to any user")
)
