package validators

import "go.mongodb.org/mongo-driver/bson"

var OrganizationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slug",
			"name",
			"timezone",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"slug": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 60,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			// IANA zone name, e.g. "Europe/Rome".
			"timezone": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"trial_ends_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
