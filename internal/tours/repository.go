package tours

import (
	"context"
	"fmt"
	"time"

	"tourbook/internal/crud"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Earth radii used to convert a surface distance into radians for
// $centerSphere queries.
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

const aggregationTimeout = 30 * time.Second

// Repository layers tour-specific reads on the generic store. Secret tours
// are excluded from every query through the store scope; there is no hidden
// rewrite anywhere else.
type Repository struct {
	store *crud.MongoStore[model.Tour, *model.Tour]
	users *crud.MongoStore[model.User, *model.User]
}

func NewRepository(toursColl, usersColl *mongo.Collection) *Repository {
	return &Repository{
		store: crud.NewMongoStore[model.Tour, *model.Tour](toursColl, crud.WithScope(bson.M{"secretTour": false})),
		users: crud.NewMongoStore[model.User, *model.User](usersColl, crud.WithScope(bson.M{"active": true})),
	}
}

// Store exposes the scoped store for the generic handlers.
func (r *Repository) Store() *crud.MongoStore[model.Tour, *model.Tour] {
	return r.store
}

func (r *Repository) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	return r.store.FindByID(ctx, id)
}

// PopulateGuides resolves the guide references into user profiles.
func (r *Repository) PopulateGuides(ctx context.Context, tour *model.Tour) error {
	if len(tour.Guides) == 0 {
		return nil
	}
	guides, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": tour.Guides}}, nil)
	if err != nil {
		return fmt.Errorf("populate guides: %w", err)
	}
	tour.GuideProfiles = guides
	return nil
}

// DifficultyStats is one aggregate row of the tour statistics report.
type DifficultyStats struct {
	Difficulty string  `json:"difficulty" bson:"_id"`
	NumTours   int     `json:"numTours" bson:"numTours"`
	NumRatings int     `json:"numRatings" bson:"numRatings"`
	AvgRating  float64 `json:"avgRating" bson:"avgRating"`
	AvgPrice   float64 `json:"avgPrice" bson:"avgPrice"`
	MinPrice   float64 `json:"minPrice" bson:"minPrice"`
	MaxPrice   float64 `json:"maxPrice" bson:"maxPrice"`
}

func statsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"secretTour":     false,
			"ratingsAverage": bson.M{"$gte": 4.5},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	}
}

func (r *Repository) Stats(ctx context.Context) ([]DifficultyStats, error) {
	ctx, cancel := context.WithTimeout(ctx, aggregationTimeout)
	defer cancel()

	cursor, err := r.store.Collection().Aggregate(ctx, statsPipeline())
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := []DifficultyStats{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("decode tour stats: %w", err)
	}
	return stats, nil
}

// MonthStats is one month of the departure plan.
type MonthStats struct {
	Month         int      `json:"month" bson:"month"`
	NumTourStarts int      `json:"numTourStarts" bson:"numTourStarts"`
	Tours         []string `json:"tours" bson:"tours"`
}

// monthlyPlanPipeline unwinds every departure in the given year and groups
// them by calendar month. Departure dates are stored as RFC 3339 strings, so
// the pipeline parses them before extracting the month.
func monthlyPlanPipeline(year int) mongo.Pipeline {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"secretTour": false}}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$addFields", Value: bson.M{
			"departure": bson.M{"$dateFromString": bson.M{"dateString": "$startDates.date"}},
		}}},
		{{Key: "$match", Value: bson.M{
			"departure": bson.M{"$gte": yearStart, "$lt": yearEnd},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$departure"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}}}},
		{{Key: "$limit", Value: 12}},
	}
}

func (r *Repository) MonthlyPlan(ctx context.Context, year int) ([]MonthStats, error) {
	ctx, cancel := context.WithTimeout(ctx, aggregationTimeout)
	defer cancel()

	cursor, err := r.store.Collection().Aggregate(ctx, monthlyPlanPipeline(year))
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	defer cursor.Close(ctx)

	plan := []MonthStats{}
	if err := cursor.All(ctx, &plan); err != nil {
		return nil, fmt.Errorf("decode monthly plan: %w", err)
	}
	return plan, nil
}

// sphereRadius converts a surface distance to radians on the given unit's
// earth radius.
func sphereRadius(distance float64, unit string) float64 {
	if unit == "mi" {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKm
}

// Within returns tours whose start location falls inside the sphere centered
// at (lat, lng) with the given surface radius.
func (r *Repository) Within(ctx context.Context, distance, lat, lng float64, unit string) ([]*model.Tour, error) {
	return r.store.Find(ctx, bson.M{
		"startLocation": bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{lng, lat}, sphereRadius(distance, unit)},
		}},
	}, nil)
}

// TourDistance is one row of the distances report.
type TourDistance struct {
	ID       string  `json:"id" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Distance float64 `json:"distance" bson:"distance"`
}

// distanceMultiplier converts the meters $geoNear produces into the unit the
// client asked for.
func distanceMultiplier(unit string) float64 {
	if unit == "mi" {
		return 0.000621371
	}
	return 0.001
}

func distancesPipeline(lat, lng float64, unit string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near": bson.M{
				"type":        "Point",
				"coordinates": bson.A{lng, lat},
			},
			"distanceField":      "distance",
			"distanceMultiplier": distanceMultiplier(unit),
			"query":              bson.M{"secretTour": false},
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}
}

func (r *Repository) Distances(ctx context.Context, lat, lng float64, unit string) ([]TourDistance, error) {
	ctx, cancel := context.WithTimeout(ctx, aggregationTimeout)
	defer cancel()

	cursor, err := r.store.Collection().Aggregate(ctx, distancesPipeline(lat, lng, unit))
	if err != nil {
		return nil, fmt.Errorf("tour distances: %w", err)
	}
	defer cursor.Close(ctx)

	distances := []TourDistance{}
	if err := cursor.All(ctx, &distances); err != nil {
		return nil, fmt.Errorf("decode tour distances: %w", err)
	}
	return distances, nil
}
