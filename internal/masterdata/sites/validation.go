package sites

import (
	"fmt"
	"strings"

	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

func (s *Service) validate(site Site) error {
	if strings.TrimSpace(site.Name) == "" {
		return fmt.Errorf("%w: site name is required", internalshared.ErrValidation)
	}
	if len(site.Name) > 120 {
		return fmt.Errorf("%w: site name must be at most 120 characters", internalshared.ErrValidation)
	}
	if !site.Type.Valid() {
		return fmt.Errorf("%w: site type must be STORAGE or EXIT", internalshared.ErrValidation)
	}
	return nil
}
