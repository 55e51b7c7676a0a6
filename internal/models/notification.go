package models

type NotificationKind string

const (
	NotifyFriendRequest  NotificationKind = "friend_request"
	NotifyFriendAccepted NotificationKind = "friend_accepted"
	NotifyChatRequest    NotificationKind = "chat_request"
)

// Notification doubles as the friendship record: an accepted pair is the
// existence of a friend_accepted row between two users.
type Notification struct {
	ID         ObjectID         `bson:"_id" json:"id"`
	FromUser   string           `bson:"from_user" json:"from_user"`
	ToUser     string           `bson:"to_user" json:"to_user"`
	Kind       NotificationKind `bson:"kind" json:"kind"`
	Read       bool             `bson:"read" json:"read"`
	Timestamps `bson:",inline"`
}

func (Notification) CollectionName() string {
	return "notifications"
}

func (n Notification) GetObjectID() ObjectID {
	return n.ID
}

func (n Notification) Key() string {
	return string(n.ID)
}
