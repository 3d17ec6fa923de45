// Файл: pkg/customvalidator/validator.go
package customvalidator

import (
	"github.com/go-playground/validator/v10"
)

// toolServiceIDs are the four tool bots a link token may address. The Pro
// bot itself never receives a link token (it is the issuer), so it is
// deliberately excluded here even though it shares the same bot registry.
var toolServiceIDs = map[string]bool{
	"interpreter":    true,
	"conceptualizer": true,
	"simulator":      true,
	"screen":         true,
}

// RegisterCustomValidations collects every custom rule and registers it on
// the given validator instance.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("tool_service_id", isToolServiceID); err != nil {
		return err
	}
	if err := v.RegisterValidation("link_role", isLinkRole); err != nil {
		return err
	}
	return nil
}

func isToolServiceID(fl validator.FieldLevel) bool {
	return toolServiceIDs[fl.Field().String()]
}

func isLinkRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "specialist", "client":
		return true
	default:
		return false
	}
}
