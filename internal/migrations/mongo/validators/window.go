package validators

import "go.mongodb.org/mongo-driver/bson"

var WeeklyWindowValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"org_id",
			"scope",
			"owner_id",
			"weekday",
			"start",
			"end",
			"active",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"org_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"scope": bson.M{
				"bsonType": "string",
				"enum": []string{
					"org",
					"member",
					"service",
				},
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"weekday": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  6,
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"active": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
