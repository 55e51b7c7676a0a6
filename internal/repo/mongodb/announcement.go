package mongodb

import "github.com/nguyentranbao-ct/kvrp/internal/models"

type AnnouncementRepository interface {
	IRepository[models.Announcement]
}

type announcementRepo struct {
	baseRepo[models.Announcement]
}

func NewAnnouncementRepository(db *DB) AnnouncementRepository {
	return &announcementRepo{
		baseRepo: newBaseRepo[models.Announcement](db.Database),
	}
}
