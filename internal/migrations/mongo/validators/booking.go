package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tour",
			"user",
			"price",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"tour": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"price": bson.M{
				"bsonType":         []string{"int", "long", "double"},
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"paid": bson.M{
				"bsonType": "bool",
			},

			"startDate": bson.M{
				"bsonType": "string",
			},
		},
	},
}

// WebhookEventValidator guards the dedup records: the provider's event ID is
// the _id.
var WebhookEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"type", "receivedAt"},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"type": bson.M{
				"bsonType": "string",
			},

			"receivedAt": bson.M{
				"bsonType": "date",
			},
		},
	},
}
