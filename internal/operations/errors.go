package operations

import (
	"errors"

	"github.com/Epistemic-Technology/paper-assistant/models"
)

// asModelCallError makes sure failures reaching the model boundary, including
// limiter waits cut short by the context, surface as *models.ModelCallError.
func asModelCallError(err error) error {
	var modelErr *models.ModelCallError
	if errors.As(err, &modelErr) {
		return err
	}
	return &models.ModelCallError{Err: err}
}
