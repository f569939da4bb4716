package suppliers

import (
	"fmt"
	"strings"

	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

func (s *Service) validate(supplier Supplier) error {
	if strings.TrimSpace(supplier.Name) == "" {
		return fmt.Errorf("%w: supplier name is required", internalshared.ErrValidation)
	}
	if len(supplier.Name) > 200 {
		return fmt.Errorf("%w: supplier name must be at most 200 characters", internalshared.ErrValidation)
	}
	if supplier.Email != "" && !strings.Contains(supplier.Email, "@") {
		return fmt.Errorf("%w: supplier email is malformed", internalshared.ErrValidation)
	}
	if (supplier.Latitude == nil) != (supplier.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be provided together", internalshared.ErrValidation)
	}
	return nil
}
