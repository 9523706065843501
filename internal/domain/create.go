package domain

import (
	"fmt"
	"math/big"
	"time"

	"houseform-api/internal/pkg/validation"
)

// CreateProjectParams are the createProject arguments a builder submits.
type CreateProjectParams struct {
	Name                string
	Description         string
	Image               string
	GoalAmount          *big.Int
	ExpectedProfit      uint64
	BuilderShares       uint64
	TotalShares         uint64
	FundraisingDeadline int64
}

// Validate checks the arguments before the transaction is prepared.
func (c CreateProjectParams) Validate(now time.Time) error {
	switch {
	case !validation.IsValidProjectName(c.Name):
		return fmt.Errorf("%w: name is required and may hold letters, digits and basic punctuation", ErrInvalidCreateParams)
	case !validation.IsValidDescription(c.Description):
		return fmt.Errorf("%w: description is required", ErrInvalidCreateParams)
	case !validation.IsValidImageURL(c.Image):
		return fmt.Errorf("%w: image must be an http(s) or ipfs url", ErrInvalidCreateParams)
	case c.GoalAmount == nil || c.GoalAmount.Sign() <= 0:
		return fmt.Errorf("%w: goal amount must be positive", ErrInvalidCreateParams)
	case c.TotalShares == 0:
		return fmt.Errorf("%w: total shares must be positive", ErrInvalidCreateParams)
	case c.BuilderShares > c.TotalShares:
		return fmt.Errorf("%w: builder shares exceed total shares", ErrInvalidCreateParams)
	case c.ExpectedProfit > 100:
		return fmt.Errorf("%w: expected profit must be between 0 and 100", ErrInvalidCreateParams)
	case c.FundraisingDeadline <= now.Unix():
		return fmt.Errorf("%w: fundraising deadline must be in the future", ErrInvalidCreateParams)
	}
	return nil
}
