package vendors

import (
	"errors"
	"strings"
)

func (s *Service) validate(v Vendor) error {
	if strings.TrimSpace(v.Code) == "" {
		return errors.New("vendor code is required")
	}
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("vendor name is required")
	}
	return nil
}
