package validators

import "go.mongodb.org/mongo-driver/bson"

var SettingsFreezeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"org_id",
			"service_id",
			"date",
			"params",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			// "<service_id>:<date>", so first-booking races on the same
			// pair collapse into one freeze.
			"_id": bson.M{
				"bsonType": "string",
			},

			"org_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"service_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  "^[0-9]{4}-[0-9]{2}-[0-9]{2}$",
			},

			"params": bson.M{
				"bsonType": "object",
				"required": []string{
					"duration_min",
					"buffer_after_min",
					"increment_min",
				},
			},

			"windows_snapshot": bson.M{
				"bsonType": "array",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
