package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_number",
			"status",
			"payment_status",
			"start_date",
			"end_date",
			"total_amount",
			"renter_id",
			"listing_id",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":            id(),
			"booking_number": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 32},
			"status":         enum(bookingStatuses),
			"payment_status": enum(paymentStatuses),
			"start_date":     date(),
			"end_date":       date(),
			"quantity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"subtotal":            money(),
			"service_fee":         money(),
			"delivery_fee":        money(),
			"deposit_amount":      money(),
			"total_amount":        money(),
			"renter_id":           id(),
			"listing_id":          id(),
			"owner_id":            bson.M{"bsonType": "string"},
			"cancellation_reason": bson.M{"bsonType": "string", "maxLength": 500},
			"confirmed_at":        date(),
			"cancelled_at":        date(),
			"created_at":          date(),
			"updated_at":          date(),
		},
	},
}
