package statestore

import "codeberg.org/mutker/psumond/internal/errors"

const (
	// Configuration Errors
	ErrInvalidDBPath = errors.ErrorCode("statestore_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("statestore_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("statestore_schema_validation_failed")
	ErrTransactionFailed      = errors.ErrorCode("statestore_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("statestore_storage_access_failed")
	ErrStorageInit   = errors.ErrInitStore
	ErrStorageClose  = errors.ErrCloseStore
)
