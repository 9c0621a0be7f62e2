package models

import "errors"

var (
	ErrInvalidMember     = errors.New("invalid member")
	ErrInvalidExpense    = errors.New("invalid expense")
	ErrInvalidSettlement = errors.New("invalid settlement")
)
