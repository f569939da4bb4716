package products

import (
	"fmt"
	"strings"

	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

func (s *Service) validate(p Product, requireReference bool) error {
	if requireReference {
		ref := strings.TrimSpace(p.Reference)
		if ref == "" {
			return fmt.Errorf("%w: product reference is required", internalshared.ErrValidation)
		}
		if len(ref) > 50 {
			return fmt.Errorf("%w: product reference must be at most 50 characters", internalshared.ErrValidation)
		}
	}
	if p.QtyPerUnit < 1 {
		return fmt.Errorf("%w: quantity per unit must be at least 1", internalshared.ErrValidation)
	}
	if !p.SupplyRisk.Valid() {
		return fmt.Errorf("%w: supply risk must be LOW, MEDIUM or HIGH", internalshared.ErrValidation)
	}
	return nil
}

func validateLink(input LinkInput) error {
	if input.UnitPrice != nil && *input.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price cannot be negative", internalshared.ErrValidation)
	}
	if input.ShippingCost != nil && *input.ShippingCost < 0 {
		return fmt.Errorf("%w: shipping cost cannot be negative", internalshared.ErrValidation)
	}
	if input.LeadTime != nil && *input.LeadTime < 0 {
		return fmt.Errorf("%w: lead time cannot be negative", internalshared.ErrValidation)
	}
	return nil
}
