// Package componentregistry registers the SemTransform processors.
package componentregistry

import (
	"errors"

	"github.com/c360/semtransform/component"
	pkgerrors "github.com/c360/semtransform/errors"
	fieldrouter "github.com/c360/semtransform/processor/field_router"
	headerfilter "github.com/c360/semtransform/processor/header_filter"
)

// Register registers every SemTransform component with the provided registry:
//
//   - header_filter: drops records by the presence of a header
//   - field_router: moves a record field to a new field or a header
func Register(registry *component.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := headerfilter.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "HeaderFilter processor component registration")
	}

	if err := fieldrouter.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "FieldRouter processor component registration")
	}

	return nil
}
