package present

import (
	"sort"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/util"
)

type PostView struct {
	ID           models.ObjectID  `json:"id"`
	Author       string           `json:"author"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	ImageURL     string           `json:"image_url,omitempty"`
	LikeCount    int              `json:"like_count"`
	DislikeCount int              `json:"dislike_count"`
	MyState      models.LikeState `json:"my_state"`
	Own          bool             `json:"own"`
	Timestamp    string           `json:"timestamp"`
	Relative     string           `json:"relative"`
}

func Posts(items []models.Post, viewer string, f Formatter) []PostView {
	out := make([]PostView, 0, len(items))
	for _, p := range items {
		out = append(out, PostView{
			ID:           p.ID,
			Author:       p.Author,
			Title:        p.Title,
			Body:         p.Body,
			ImageURL:     p.ImageURL,
			LikeCount:    p.LikeCount,
			DislikeCount: p.DislikeCount,
			MyState:      p.StateOf(viewer),
			Own:          p.Author == viewer,
			Timestamp:    f.Timestamp(p.CreatedAt),
			Relative:     f.Relative(p.CreatedAt),
		})
	}
	return out
}

type ReportView struct {
	ID            models.ObjectID     `json:"id"`
	Author        string              `json:"author"`
	Category      string              `json:"category"`
	Description   string              `json:"description"`
	ScreenshotURL string              `json:"screenshot_url,omitempty"`
	Status        models.ReportStatus `json:"status"`
	AdminResponse string              `json:"admin_response,omitempty"`
	Timestamp     string              `json:"timestamp"`
	Relative      string              `json:"relative"`
}

func Reports(items []models.Report, f Formatter) []ReportView {
	return util.ConvertList(items, func(r models.Report) ReportView {
		return ReportView{
			ID:            r.ID,
			Author:        r.Author,
			Category:      r.Category,
			Description:   r.Description,
			ScreenshotURL: r.ScreenshotURL,
			Status:        r.Status,
			AdminResponse: r.AdminResponse,
			Timestamp:     f.Timestamp(r.CreatedAt),
			Relative:      f.Relative(r.UpdatedAt),
		}
	})
}

type AnnouncementView struct {
	ID        models.ObjectID `json:"id"`
	Author    string          `json:"author"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Pinned    bool            `json:"pinned"`
	Timestamp string          `json:"timestamp"`
	Relative  string          `json:"relative"`
}

// Announcements puts pinned rows first, keeping feed order otherwise.
func Announcements(items []models.Announcement, f Formatter) []AnnouncementView {
	out := util.ConvertList(items, func(a models.Announcement) AnnouncementView {
		return AnnouncementView{
			ID:        a.ID,
			Author:    a.Author,
			Title:     a.Title,
			Body:      a.Body,
			Pinned:    a.Pinned,
			Timestamp: f.Timestamp(a.CreatedAt),
			Relative:  f.Relative(a.CreatedAt),
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}
