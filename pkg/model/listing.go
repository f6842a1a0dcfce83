package model

type Listing struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID string `json:"owner_id" bson:"owner_id"`
	Title   string `json:"title" bson:"title"`
	// InstantBook is nil when the listing document does not set it.
	InstantBook *bool `json:"instant_book,omitempty" bson:"instant_book,omitempty"`
}

// RequiresConfirmation is true only for listings explicitly marked as not
// instant-bookable.
func (l *Listing) RequiresConfirmation() bool {
	return l != nil && l.InstantBook != nil && !*l.InstantBook
}

// Profile mirrors the public profile of an authenticated user.
type Profile struct {
	ID       string   `json:"id" bson:"_id"`
	Email    string   `json:"email" bson:"email"`
	FullName string   `json:"full_name" bson:"full_name"`
	Roles    []string `json:"roles" bson:"roles"`
}

func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
