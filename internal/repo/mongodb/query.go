package mongodb

import (
	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// filterToBSON renders f as a find filter. prefix is prepended to every
// field, "fullDocument." for change stream matches.
func filterToBSON(f models.Filter, prefix string) bson.M {
	if f.IsZero() {
		return bson.M{}
	}
	groups := make([]bson.M, 0, len(f.Any))
	for _, g := range f.Any {
		m := bson.M{}
		for _, c := range g {
			m[prefix+c.Field] = c.Value
		}
		groups = append(groups, m)
	}
	if len(groups) == 1 {
		return groups[0]
	}
	return bson.M{"$or": groups}
}

func findOptions(q models.Query) *options.FindOptions {
	field := q.Sort.Field
	if field == "" {
		field = "created_at"
	}
	dir := 1
	if q.Sort.Direction == models.Descending {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}
