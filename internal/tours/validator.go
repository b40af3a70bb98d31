package tours

import (
	"tourbook/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

var validate = validator.New()

// prepare validates a new tour and fills derived defaults: the URL slug from
// the name and the seed ratings average.
func prepare(tour *model.Tour) error {
	if tour.RatingsAverage == 0 {
		tour.RatingsAverage = model.DefaultRatingsAverage
	}
	if err := validate.Struct(tour); err != nil {
		return err
	}
	tour.Slug = slug.Make(tour.Name)
	return nil
}
