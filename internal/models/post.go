package models

import "fmt"

const MaxPostBody = 2000

type LikeState string

const (
	LikeNone    LikeState = "none"
	LikeLike    LikeState = "like"
	LikeDislike LikeState = "dislike"
)

func ParseLikeState(s string) (LikeState, error) {
	switch LikeState(s) {
	case LikeNone, LikeLike, LikeDislike:
		return LikeState(s), nil
	case "":
		return LikeNone, nil
	}
	return "", fmt.Errorf("%w: like state %q", ErrInvalidArgument, s)
}

type Post struct {
	ID           ObjectID `bson:"_id" json:"id"`
	Author       string   `bson:"author" json:"author"`
	Title        string   `bson:"title" json:"title"`
	Body         string   `bson:"body" json:"body"`
	ImageURL     string   `bson:"image_url,omitempty" json:"image_url,omitempty"`
	LikedBy      []string `bson:"liked_by" json:"liked_by"`
	DislikedBy   []string `bson:"disliked_by" json:"disliked_by"`
	LikeCount    int      `bson:"like_count" json:"like_count"`
	DislikeCount int      `bson:"dislike_count" json:"dislike_count"`
	Timestamps   `bson:",inline"`
}

func (Post) CollectionName() string {
	return "posts"
}

func (p Post) GetObjectID() ObjectID {
	return p.ID
}

func (p Post) Key() string {
	return string(p.ID)
}

// StateOf returns the reaction of user to the post.
func (p Post) StateOf(user string) LikeState {
	for _, u := range p.LikedBy {
		if u == user {
			return LikeLike
		}
	}
	for _, u := range p.DislikedBy {
		if u == user {
			return LikeDislike
		}
	}
	return LikeNone
}

// ApplyLikeState moves user into the set matching state, out of the other,
// and recomputes both counts from the set sizes. It mirrors likePipeline in
// repo/mongodb, which applies the same change server-side; in-memory stores
// use this form.
func ApplyLikeState(p Post, user string, state LikeState) Post {
	liked := without(p.LikedBy, user)
	disliked := without(p.DislikedBy, user)
	switch state {
	case LikeLike:
		liked = append(liked, user)
	case LikeDislike:
		disliked = append(disliked, user)
	}
	p.LikedBy = uniqueSorted(liked)
	p.DislikedBy = uniqueSorted(disliked)
	p.LikeCount = len(p.LikedBy)
	p.DislikeCount = len(p.DislikedBy)
	return p
}

func without(in []string, v string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
