package validators

import (
	"rentio/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	bookingStatuses = []string{
		string(model.BookingPending),
		string(model.BookingConfirmed),
		string(model.BookingInProgress),
		string(model.BookingCompleted),
		string(model.BookingCancelled),
	}

	paymentStatuses = []string{
		string(model.PaymentPending),
		string(model.PaymentProcessing),
		string(model.PaymentCompleted),
		string(model.PaymentFailed),
		string(model.PaymentRefunded),
	}
)

func id() bson.M {
	return bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64}
}

func enum(values []string) bson.M {
	return bson.M{"bsonType": "string", "enum": values}
}

func money() bson.M {
	return bson.M{"bsonType": []string{"long", "int"}, "minimum": 0}
}

func date() bson.M {
	return bson.M{"bsonType": "date"}
}
