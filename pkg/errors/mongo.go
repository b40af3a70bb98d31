package errors

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo write error codes that map onto the operational taxonomy.
const (
	mongoDuplicateKey     = 11000
	mongoDocumentInvalid  = 121
	mongoDocumentTooLarge = 10334
)

// FromMongo translates store-level failures into the operational taxonomy
// before they reach the responder. Unknown errors become non-operational
// internal errors.
func FromMongo(err error, resource string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound(resource)
	}

	if mongo.IsDuplicateKeyError(err) {
		return DuplicateKey(duplicateValue(err))
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			switch we.Code {
			case mongoDuplicateKey:
				return DuplicateKey(duplicateValue(err))
			case mongoDocumentInvalid, mongoDocumentTooLarge:
				return Validation("Invalid input data.", map[string]any{"error": we.Message})
			}
		}
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == mongoDocumentInvalid {
		return Validation("Invalid input data.", map[string]any{"error": cmdErr.Message})
	}

	return Internal("Database operation failed", err)
}

func duplicateValue(err error) any {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == mongoDuplicateKey {
				return we.Message
			}
		}
	}
	return err.Error()
}
