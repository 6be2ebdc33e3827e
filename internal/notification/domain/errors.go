package domain

import "errors"

var (
	ErrMessageNotFound = errors.New("notification message not found")
	ErrDeliveryFailure = errors.New("notification delivery failed")
)
