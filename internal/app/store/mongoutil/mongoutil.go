// internal/app/store/mongoutil/mongoutil.go
package mongoutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Translate maps driver errors onto the storeapi sentinels so callers never
// have to import the driver to classify a failure.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storeapi.ErrNotFound
	case mongo.IsDuplicateKeyError(err), wafflemongo.IsDup(err):
		return fmt.Errorf("%w: %v", storeapi.ErrDuplicate, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", storeapi.ErrUnavailable, err)
	default:
		return err
	}
}
