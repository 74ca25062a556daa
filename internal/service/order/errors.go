package order

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/venue-go/internal/domain"
)

var ErrInvalidSelection = errors.New("invalid service selection")

// InvalidSelectionError names the selected id that is not on the resource's
// catalog under the given category.
type InvalidSelectionError struct {
	Category  domain.ServiceCategory
	ServiceID int64
}

func (e InvalidSelectionError) Error() string {
	return fmt.Sprintf("service %d is not offered under %s for this venue", e.ServiceID, e.Category)
}

func (e InvalidSelectionError) Is(target error) bool { return target == ErrInvalidSelection }
