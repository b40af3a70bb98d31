package tours

import (
	"math"
	"testing"

	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func TestPrepare(t *testing.T) {
	valid := func() *model.Tour {
		return &model.Tour{
			Name:         "The Forest Hiker Tour",
			Duration:     5,
			MaxGroupSize: 25,
			Difficulty:   model.DifficultyEasy,
			Price:        397,
			Summary:      "Breathtaking hike through the Canadian Banff National Park",
			ImageCover:   "tour-1-cover.jpg",
		}
	}

	t.Run("derives slug and seed rating", func(t *testing.T) {
		tour := valid()
		if err := prepare(tour); err != nil {
			t.Fatalf("prepare failed: %v", err)
		}
		if tour.Slug != "the-forest-hiker-tour" {
			t.Errorf("expected slug from name, got %q", tour.Slug)
		}
		if tour.RatingsAverage != model.DefaultRatingsAverage {
			t.Errorf("expected seed ratings average, got %v", tour.RatingsAverage)
		}
	})

	t.Run("keeps an explicit rating", func(t *testing.T) {
		tour := valid()
		tour.RatingsAverage = 3.2
		if err := prepare(tour); err != nil {
			t.Fatalf("prepare failed: %v", err)
		}
		if tour.RatingsAverage != 3.2 {
			t.Errorf("explicit rating must survive, got %v", tour.RatingsAverage)
		}
	})

	t.Run("rejects a short name", func(t *testing.T) {
		tour := valid()
		tour.Name = "Short"
		if err := prepare(tour); err == nil {
			t.Error("expected validation error for a short name")
		}
	})

	t.Run("rejects a discount above the price", func(t *testing.T) {
		tour := valid()
		tour.PriceDiscount = 500
		if err := prepare(tour); err == nil {
			t.Error("expected validation error for discount >= price")
		}
	})

	t.Run("rejects an unknown difficulty", func(t *testing.T) {
		tour := valid()
		tour.Difficulty = "impossible"
		if err := prepare(tour); err == nil {
			t.Error("expected validation error for unknown difficulty")
		}
	})
}

func TestRegenerateSlug(t *testing.T) {
	set := regenerateSlug(bson.M{"name": "The Sea Explorer Tour"})
	if set["slug"] != "the-sea-explorer-tour" {
		t.Errorf("expected slug regenerated from new name, got %v", set["slug"])
	}

	set = regenerateSlug(bson.M{"price": 500})
	if _, ok := set["slug"]; ok {
		t.Error("slug must not change when the name does not")
	}
}

func TestSphereRadius(t *testing.T) {
	if got := sphereRadius(3963.2, "mi"); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected one earth radius in miles to be 1 radian, got %v", got)
	}
	if got := sphereRadius(6378.1, "km"); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected one earth radius in km to be 1 radian, got %v", got)
	}
}

func TestDistanceMultiplier(t *testing.T) {
	if got := distanceMultiplier("mi"); got != 0.000621371 {
		t.Errorf("expected miles multiplier, got %v", got)
	}
	if got := distanceMultiplier("km"); got != 0.001 {
		t.Errorf("expected km multiplier, got %v", got)
	}
}

func TestMonthlyPlanPipeline_BoundsTheYear(t *testing.T) {
	pipeline := monthlyPlanPipeline(2024)

	var matched bool
	for _, stage := range pipeline {
		m, ok := stage[0].Value.(bson.M)
		if !ok || stage[0].Key != "$match" {
			continue
		}
		bounds, ok := m["departure"].(bson.M)
		if !ok {
			continue
		}
		matched = true
		if _, hasStart := bounds["$gte"]; !hasStart {
			t.Error("expected a lower year bound")
		}
		if _, hasEnd := bounds["$lt"]; !hasEnd {
			t.Error("expected an exclusive upper year bound")
		}
	}
	if !matched {
		t.Fatal("expected a departure range match stage")
	}
}

func TestParseLatLng(t *testing.T) {
	lat, lng, err := parseLatLng("34.111745,-118.113491")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if lat != 34.111745 || lng != -118.113491 {
		t.Errorf("got lat=%v lng=%v", lat, lng)
	}

	for _, bad := range []string{"", "34.1", "a,b", "1,2,3"} {
		if _, _, err := parseLatLng(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
