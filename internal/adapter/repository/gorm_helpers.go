package repository

import (
	stderrors "errors"

	"gorm.io/gorm"

	"barterhub/pkg/errors"
	"barterhub/pkg/logger"
)

// storageError converts a gorm failure into the application taxonomy.
// resource names the entity for NOT_FOUND messages.
func storageError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound(resource, err)
	}
	appErr := errors.Classify(err)
	if appErr.Code == errors.CodeInternal {
		logger.Error("%s failed: %v", op, err)
	}
	return appErr
}
