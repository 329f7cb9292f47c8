package models

import "errors"

var (
	// ErrDocumentNotFound 文书不存在错误
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAmountNotFound 金额结果不存在错误
	ErrAmountNotFound = errors.New("amount not found")

	// ErrEmptyID ID为空
	ErrEmptyID = errors.New("id cannot be empty")
)
