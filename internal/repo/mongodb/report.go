package mongodb

import (
	"context"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

type ReportRepository interface {
	IRepository[models.Report]
	Respond(ctx context.Context, id models.ObjectID, response string, status models.ReportStatus) (*models.Report, error)
}

type reportRepo struct {
	baseRepo[models.Report]
}

func NewReportRepository(db *DB) ReportRepository {
	return &reportRepo{
		baseRepo: newBaseRepo[models.Report](db.Database),
	}
}

func (r *reportRepo) Respond(ctx context.Context, id models.ObjectID, response string, status models.ReportStatus) (*models.Report, error) {
	return r.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"admin_response": response,
		"status":         status,
		"updated_at":     time.Now().UTC(),
	}})
}
