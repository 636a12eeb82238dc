// Package creator holds creator profile rows as read for predictive search.
package creator

import "time"

// Profile is a creator profile.
type Profile struct {
	ID                 string
	Handle             string
	DisplayName        string
	Bio                string
	AvatarPath         string
	VerificationStatus string
	CreatedAt          time.Time
}
