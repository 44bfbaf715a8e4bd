package dashboard

import (
	"github.com/aiarcade/aiarcade/internal/api/blog"
	"github.com/aiarcade/aiarcade/internal/api/tools"
	"github.com/aiarcade/aiarcade/internal/types"
)

// Summary is the per-user dashboard payload: the caller's profile plus
// activity counts and their latest contributions.
type Summary struct {
	Profile       *types.UserProfile `json:"profile"`
	Stats         Stats              `json:"stats"`
	RecentPosts   []blog.Post        `json:"recentPosts"`
	FavoriteTools []tools.Tool       `json:"favoriteTools"`
}

type Stats struct {
	PostCount     int64 `json:"postCount"`
	CommentCount  int64 `json:"commentCount"`
	FavoriteCount int64 `json:"favoriteCount"`
	ArcadeCoins   int   `json:"arcadeCoins"`
}
