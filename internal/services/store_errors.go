package services

import (
	stderrors "errors"
	"strings"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

// storeRuleViolations are fragments of failures raised by the store's own
// constraints and triggers. They are rejected inputs, not outages.
var storeRuleViolations = []string{
	"CHECK constraint failed",
	"FOREIGN KEY constraint failed",
	"append-only",
	"match is closed for betting",
	"match lock is irreversible",
	"fight is locked",
	"does not belong to this drawer type",
	"drawer is closed",
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isRecordNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// storeError classifies a storage failure. AppErrors from model hooks pass
// through unchanged.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err) {
		return errors.Wrap(err, errors.ErrCodeAlreadyExists, message)
	}
	for _, fragment := range storeRuleViolations {
		if strings.Contains(err.Error(), fragment) {
			return errors.Wrap(err, errors.ErrCodeValidation, message)
		}
	}
	return errors.Internal(err, message)
}
