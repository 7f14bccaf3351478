package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrClassifier      = errors.New("intent classification failed")
	ErrDispatch        = errors.New("intent could not be routed")
	ErrSpecialist      = errors.New("specialist execution failed")
	ErrPaymentRequired = errors.New("payment required")
	ErrPaymentRejected = errors.New("payment not confirmed")
	ErrNotFound        = errors.New("not found")
)
