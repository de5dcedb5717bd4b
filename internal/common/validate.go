package common

import "github.com/go-playground/validator/v10"

// Validate is the shared request validator. Handlers run decoded payloads
// through it before touching any service.
var Validate = validator.New(validator.WithRequiredStructEnabled())
