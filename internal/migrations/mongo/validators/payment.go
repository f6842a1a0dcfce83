package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"booking_id", "provider", "status", "amount", "currency", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":              id(),
			"booking_id":       id(),
			"provider":         bson.M{"bsonType": "string", "minLength": 1},
			"checkout_id":      bson.M{"bsonType": "string"},
			"provider_id":      bson.M{"bsonType": "string"},
			"status":           enum(paymentStatuses),
			"amount":           money(),
			"currency":         bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
			"deposit_hold":     bson.M{"bsonType": "bool"},
			"deposit_released": bson.M{"bsonType": "bool"},
			"created_at":       date(),
			"updated_at":       date(),
		},
	},
}

// WebhookEventValidator covers the idempotency ledger; _id is provider:event_id.
var WebhookEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "provider", "type", "received_at"},
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string", "minLength": 3},
			"provider":    bson.M{"bsonType": "string"},
			"type":        bson.M{"bsonType": "string"},
			"checkout_id": bson.M{"bsonType": "string"},
			"payment_id":  bson.M{"bsonType": "string"},
			"status":      bson.M{"bsonType": "string"},
			"received_at": date(),
		},
	},
}
