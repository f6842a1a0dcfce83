package validators

import "go.mongodb.org/mongo-driver/bson"

var ConversationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"booking_id", "participants", "created_at"},
		"properties": bson.M{
			"_id":        id(),
			"booking_id": id(),
			"listing_id": bson.M{"bsonType": "string"},
			"participants": bson.M{
				"bsonType": "array",
				"minItems": 2,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"user_id", "role"},
					"properties": bson.M{
						"user_id":   id(),
						"role":      bson.M{"bsonType": "string"},
						"joined_at": date(),
					},
				},
			},
			"created_at": date(),
		},
	},
}

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"user_id", "type", "title", "message", "channels", "is_read", "created_at"},
		"properties": bson.M{
			"_id":     id(),
			"user_id": id(),
			"type":    bson.M{"bsonType": "string"},
			"title":   bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"message": bson.M{"bsonType": "string", "minLength": 1},
			"data":    bson.M{"bsonType": "object"},
			"channels": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string", "enum": []string{"EMAIL", "PUSH"}},
			},
			"is_read":    bson.M{"bsonType": "bool"},
			"created_at": date(),
		},
	},
}

var BookingHistoryValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"event_id", "booking_id", "type", "recorded_at"},
		"properties": bson.M{
			"_id":            id(),
			"event_id":       bson.M{"bsonType": "string", "minLength": 1},
			"booking_id":     bson.M{"bsonType": "string", "minLength": 1},
			"type":           bson.M{"bsonType": "string"},
			"from_status":    bson.M{"bsonType": "string"},
			"to_status":      bson.M{"bsonType": "string"},
			"payment_status": bson.M{"bsonType": "string"},
			"actor_id":       bson.M{"bsonType": "string"},
			"source":         bson.M{"bsonType": "string"},
			"occurred_at":    date(),
			"recorded_at":    date(),
		},
	},
}
