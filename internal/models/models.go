package models

import "time"

// PlayerRole identifies which side of a session a user plays.
type PlayerRole string

const (
	RoleCreator PlayerRole = "creator"
	RolePartner PlayerRole = "partner"
)

// Other returns the opposite role.
func (r PlayerRole) Other() PlayerRole {
	if r == RoleCreator {
		return RolePartner
	}
	return RoleCreator
}

// Valid reports whether the role is one of the two known values.
func (r PlayerRole) Valid() bool {
	return r == RoleCreator || r == RolePartner
}

// MessageType enumerates the kinds of messages exchanged in a session.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessagePhoto MessageType = "photo"
	MessageVideo MessageType = "video"
	MessageAudio MessageType = "audio"
)

// IsMedia reports whether the message type carries an uploaded blob.
func (t MessageType) IsMedia() bool {
	return t == MessagePhoto || t == MessageVideo || t == MessageAudio
}

// PremiumPlan enumerates subscription plans.
type PremiumPlan string

const (
	PlanMonthly PremiumPlan = "monthly"
	PlanYearly  PremiumPlan = "yearly"
	PlanNone    PremiumPlan = ""
)

// Preferences holds per-user game preferences.
type Preferences struct {
	Themes          []string `json:"themes"`
	AcceptsPhoto    bool     `json:"accepts_photo"`
	AcceptsVideo    bool     `json:"accepts_video"`
	AcceptsAudio    bool     `json:"accepts_audio"`
	PartnerNickname string   `json:"partner_nickname,omitempty"`
}

// User represents a registered player.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	DisplayName  string      `json:"display_name"`
	Gender       string      `json:"gender"`
	DateOfBirth  time.Time   `json:"date_of_birth"`
	Premium      bool        `json:"premium"`
	PremiumPlan  PremiumPlan `json:"premium_plan,omitempty"`
	PremiumUntil *time.Time  `json:"premium_until,omitempty"`
	Preferences  Preferences `json:"preferences"`
	PushToken    *string     `json:"push_token,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsPremiumAt reports whether the user's subscription is active at the given
// instant. The premium flag alone is not trusted: an expired premium_until
// always wins.
func (u *User) IsPremiumAt(now time.Time) bool {
	return u.Premium && u.PremiumUntil != nil && u.PremiumUntil.After(now)
}

// Challenge is a single entry of a session's challenge list, drawn from the
// pool at session creation.
type Challenge struct {
	Text         string `json:"text"`
	TargetGender string `json:"target_gender"`
	Intensity    int    `json:"intensity"`
	Type         string `json:"type"`
	Theme        string `json:"theme"`
}

// PoolChallenge is a catalog entry that session challenge lists are drawn from.
type PoolChallenge struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	TargetGender string `json:"target_gender"`
	Intensity    int    `json:"intensity"`
	Type         string `json:"type"`
	Theme        string `json:"theme"`
}

// Session represents a game between two paired players.
type Session struct {
	Code                  string      `json:"code"`
	CreatorID             string      `json:"creator_id"`
	PartnerID             *string     `json:"partner_id,omitempty"`
	Theme                 string      `json:"theme"`
	Intensity             int         `json:"intensity"`
	Challenges            []Challenge `json:"challenges"`
	CurrentChallengeIndex int         `json:"current_challenge_index"`
	CurrentPlayer         PlayerRole  `json:"current_player"`
	CreatorChangesUsed    int         `json:"creator_changes_used"`
	PartnerChangesUsed    int         `json:"partner_changes_used"`
	CreatorBonusChanges   int         `json:"creator_bonus_changes"`
	PartnerBonusChanges   int         `json:"partner_bonus_changes"`
	CreatedAt             time.Time   `json:"created_at"`
}

// Finished reports whether the session has exhausted its challenge list.
func (s *Session) Finished() bool {
	return s.CurrentChallengeIndex >= len(s.Challenges)
}

// RoleOf returns the role the given user plays in this session, or "" if the
// user is not a participant.
func (s *Session) RoleOf(userID string) PlayerRole {
	if s.CreatorID == userID {
		return RoleCreator
	}
	if s.PartnerID != nil && *s.PartnerID == userID {
		return RolePartner
	}
	return ""
}

// ChangesUsed returns the change counter for a role.
func (s *Session) ChangesUsed(role PlayerRole) int {
	if role == RoleCreator {
		return s.CreatorChangesUsed
	}
	return s.PartnerChangesUsed
}

// BonusChanges returns the rewarded-ad bonus counter for a role.
func (s *Session) BonusChanges(role PlayerRole) int {
	if role == RoleCreator {
		return s.CreatorBonusChanges
	}
	return s.PartnerBonusChanges
}

// Message represents one entry of a session's ordered message log.
type Message struct {
	ID              string      `json:"id"`
	SessionCode     string      `json:"session_code"`
	SenderID        string      `json:"sender_id"`
	SenderGender    string      `json:"sender_gender"`
	Type            MessageType `json:"type"`
	Content         string      `json:"content"`
	MediaURL        *string     `json:"media_url,omitempty"`
	MediaThumbnail  *string     `json:"media_thumbnail,omitempty"`
	MediaKey        *string     `json:"-"`
	MediaExpiresAt  *time.Time  `json:"media_expires_at,omitempty"`
	MediaDownloaded bool        `json:"media_downloaded"`
	MediaPurged     bool        `json:"-"`
	Read            bool        `json:"read"`
	ReadAt          *time.Time  `json:"read_at,omitempty"`
	UploadRequestID *string     `json:"upload_request_id,omitempty"`
	Pending         bool        `json:"pending"`
	CreatedAt       time.Time   `json:"created_at"`
}

// MediaExpired reports whether the message's media is past its expiry at the
// given instant. Text messages never expire.
func (m *Message) MediaExpired(now time.Time) bool {
	return m.MediaExpiresAt != nil && !now.Before(*m.MediaExpiresAt)
}
