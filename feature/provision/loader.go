package provision

import (
	"github.com/gofiber/fiber/v2"
)

// Feature wires provisioning sessions into the HTTP server.
type Feature struct {
	service *Service
}

// NewFeature creates the provision feature around an existing service.
func NewFeature(service *Service) *Feature {
	return &Feature{service: service}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "provision"
}

// IsEnabled reports whether the feature has somewhere to connect.
func (f *Feature) IsEnabled() bool {
	return f.service != nil && f.service.registry != nil
}

// Load registers the session routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
