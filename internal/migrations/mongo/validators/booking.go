package validators

import "go.mongodb.org/mongo-driver/bson"

// Bookings holds both real client bookings (service_id set) and date
// overrides (service_id absent), so only the shared fields are required.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"org_id",
			"start",
			"end",
			"is_blocking",
			"created_at",
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

			"service_id": bson.M{
				"bsonType": "string",
			},

			"member_id": bson.M{
				"bsonType": "string",
			},

			"start": bson.M{
				"bsonType": "date",
			},

			"end": bson.M{
				"bsonType": "date",
			},

			"is_blocking": bson.M{
				"bsonType": "bool",
			},

			"client_name": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"client_phone": bson.M{
				"bsonType":  "string",
				"maxLength": 20,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"token",
			"expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"token": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
