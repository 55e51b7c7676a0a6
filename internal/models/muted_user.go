package models

type MutedUser struct {
	ID         ObjectID `bson:"_id" json:"id"`
	Username   string   `bson:"username" json:"username"`
	Reason     string   `bson:"reason,omitempty" json:"reason,omitempty"`
	MutedBy    string   `bson:"muted_by" json:"muted_by"`
	Timestamps `bson:",inline"`
}

func (MutedUser) CollectionName() string {
	return "muted_users"
}

func (m MutedUser) GetObjectID() ObjectID {
	return m.ID
}

func (m MutedUser) Key() string {
	return string(m.ID)
}
