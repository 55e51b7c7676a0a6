package models

type Announcement struct {
	ID         ObjectID `bson:"_id" json:"id"`
	Author     string   `bson:"author" json:"author"`
	Title      string   `bson:"title" json:"title"`
	Body       string   `bson:"body" json:"body"`
	Pinned     bool     `bson:"pinned" json:"pinned"`
	Timestamps `bson:",inline"`
}

func (Announcement) CollectionName() string {
	return "announcements"
}

func (a Announcement) GetObjectID() ObjectID {
	return a.ID
}

func (a Announcement) Key() string {
	return string(a.ID)
}
