package validators

import "go.mongodb.org/mongo-driver/bson"

var ServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"org_id",
			"name",
			"duration_min",
			"increment_min",
			"max_booking_days",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"org_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"duration_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  1440,
			},

			"buffer_after_min": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  480,
			},

			"increment_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  480,
			},

			"use_fixed_increment": bson.M{
				"bsonType": "bool",
			},

			"allow_ends_after_availability": bson.M{
				"bsonType": "bool",
			},

			"allow_squished_bookings": bson.M{
				"bsonType": "bool",
			},

			"min_notice_hours": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  720,
			},

			"max_booking_days": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  365,
			},

			"assignee_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
