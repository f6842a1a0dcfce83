package validators

import (
	"rentio/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var RefundRequestValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"booking_id", "renter_id", "reason", "status", "created_at"},
		"properties": bson.M{
			"_id":         id(),
			"booking_id":  id(),
			"renter_id":   id(),
			"reason":      bson.M{"bsonType": "string", "minLength": 5, "maxLength": 1000},
			"status":      enum([]string{string(model.RefundPending), string(model.RefundApproved)}),
			"resolved_by": bson.M{"bsonType": "string"},
			"created_at":  date(),
			"resolved_at": date(),
		},
	},
}
