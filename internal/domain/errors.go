package domain

import "errors"

var (
	ErrInvalidProject      = errors.New("invalid project")
	ErrProjectNotFound     = errors.New("Project not found")
	ErrUnknownAction       = errors.New("Unknown action")
	ErrActionNotPermitted  = errors.New("Action not permitted in the current project state")
	ErrInvalidShares       = errors.New("Invalid number of shares")
	ErrInvalidAmount       = errors.New("Invalid amount")
	ErrInvalidAddress      = errors.New("Invalid address")
	ErrInvalidCreateParams = errors.New("Invalid project parameters")
	ErrTransactionNotFound = errors.New("Transaction not found")
	ErrTransactionReverted = errors.New("Transaction reverted")
	ErrForeignTransaction  = errors.New("Transaction does not target a Houseform contract")
	ErrSenderMismatch      = errors.New("Transaction sender does not match the signed-in wallet")
	ErrMissingProjectID    = errors.New("project_id is required")
	ErrInvalidRawTx        = errors.New("Invalid signed transaction")
	ErrCallMismatch        = errors.New("Signed call does not match the declared action")
	ErrConfirmationTimeout = errors.New("Transaction not confirmed yet")
)
