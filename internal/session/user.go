package session

// User is the app-level identity profile. ProfileToken is an opaque marker
// issued by the profile service once onboarding completed; it is not an
// auth token. A User is mutable only through explicit profile updates.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	PictureURL   string `json:"picture_url,omitempty"`
	ProfileToken string `json:"profile_token,omitempty"`
}

// UserPatch is a partial User for profile updates. Nil fields are left
// untouched; ID is never patchable.
type UserPatch struct {
	Email        *string
	GivenName    *string
	FamilyName   *string
	Phone        *string
	BirthDate    *string
	PictureURL   *string
	ProfileToken *string
}

func (u *User) apply(p UserPatch) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.GivenName != nil {
		u.GivenName = *p.GivenName
	}
	if p.FamilyName != nil {
		u.FamilyName = *p.FamilyName
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.BirthDate != nil {
		u.BirthDate = *p.BirthDate
	}
	if p.PictureURL != nil {
		u.PictureURL = *p.PictureURL
	}
	if p.ProfileToken != nil {
		u.ProfileToken = *p.ProfileToken
	}
}

// UserFromAttributes maps provider attributes (standard claim names) onto a
// User for the given principal id.
func UserFromAttributes(principalID string, attrs map[string]string) *User {
	return &User{
		ID:         principalID,
		Email:      attrs["email"],
		GivenName:  attrs["given_name"],
		FamilyName: attrs["family_name"],
		Phone:      attrs["phone_number"],
		BirthDate:  attrs["birthdate"],
		PictureURL: attrs["picture"],
	}
}
