package validators

import "go.mongodb.org/mongo-driver/bson"

var TourValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"duration",
			"maxGroupSize",
			"difficulty",
			"price",
			"summary",
			"imageCover",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 10,
				"maxLength": 40,
			},

			"slug": bson.M{
				"bsonType": "string",
			},

			"duration": bson.M{
				"bsonType": []string{"int", "long", "double"},
				"minimum":  1,
			},

			"maxGroupSize": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"difficulty": bson.M{
				"enum": []string{"easy", "medium", "difficult"},
			},

			"ratingsAverage": bson.M{
				"bsonType": []string{"int", "long", "double"},
				"minimum":  1,
				"maximum":  5,
			},

			"ratingsQuantity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"price": bson.M{
				"bsonType":         []string{"int", "long", "double"},
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"summary": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"imageCover": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"secretTour": bson.M{
				"bsonType": "bool",
			},

			"startDates": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"date"},
					"properties": bson.M{
						"date": bson.M{
							"bsonType": "string",
						},
						"participants": bson.M{
							"bsonType": []string{"int", "long"},
							"minimum":  0,
						},
						"soldOut": bson.M{
							"bsonType": "bool",
						},
					},
				},
			},
		},
	},
}
