package models

type ReportStatus string

const (
	ReportOpen   ReportStatus = "open"
	ReportClosed ReportStatus = "closed"
)

type Report struct {
	ID            ObjectID     `bson:"_id" json:"id"`
	Author        string       `bson:"author" json:"author"`
	Category      string       `bson:"category" json:"category"`
	Description   string       `bson:"description" json:"description"`
	ScreenshotURL string       `bson:"screenshot_url,omitempty" json:"screenshot_url,omitempty"`
	Status        ReportStatus `bson:"status" json:"status"`
	AdminResponse string       `bson:"admin_response,omitempty" json:"admin_response,omitempty"`
	Timestamps    `bson:",inline"`
}

func (Report) CollectionName() string {
	return "reports"
}

func (r Report) GetObjectID() ObjectID {
	return r.ID
}

func (r Report) Key() string {
	return string(r.ID)
}
