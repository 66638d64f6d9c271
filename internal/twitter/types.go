package twitter

import (
	"bytes"
	"strconv"
	"time"
)

// Author is the poster of a tweet or the owner of a timeline.
type Author struct {
	Name        string
	ScreenName  string
	Description string
	Followers   int64
	Verified    bool
}

// Tweet is a single post with its engagement counters.
type Tweet struct {
	Text      string
	CreatedAt time.Time // zero when the API sent an unparsable date
	Views     int64
	Favorites int64
	Retweets  int64
	Replies   int64
	Pinned    bool
	Author    Author
}

// Engagement sums favorites, retweets and replies.
func (t Tweet) Engagement() int64 {
	return t.Favorites + t.Retweets + t.Replies
}

// Timeline is a user profile with its pinned and latest tweets.
type Timeline struct {
	User   Author
	Tweets []Tweet
}

// count accepts both JSON numbers and numeric strings; views arrive as
// strings, the other counters as numbers.
type count int64

func (c *count) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		n = 0
	}
	*c = count(n)
	return nil
}

type userInfo struct {
	Name        string `json:"name"`
	ScreenName  string `json:"screen_name"`
	Followers   count  `json:"followers_count"`
	Description string `json:"description"`
}

type rawTweet struct {
	Text      string    `json:"text"`
	CreatedAt string    `json:"created_at"`
	Views     count     `json:"views"`
	Favorites count     `json:"favorites"`
	Retweets  count     `json:"retweets"`
	Replies   count     `json:"replies"`
	UserInfo  *userInfo `json:"user_info"`
}

func (r *rawTweet) toTweet(pinned bool) Tweet {
	t := Tweet{
		Text:      r.Text,
		Views:     int64(r.Views),
		Favorites: int64(r.Favorites),
		Retweets:  int64(r.Retweets),
		Replies:   int64(r.Replies),
		Pinned:    pinned,
	}
	if ts, err := time.Parse(time.RubyDate, r.CreatedAt); err == nil {
		t.CreatedAt = ts.UTC()
	}
	if r.UserInfo != nil {
		t.Author = Author{
			Name:        r.UserInfo.Name,
			ScreenName:  r.UserInfo.ScreenName,
			Description: r.UserInfo.Description,
			Followers:   int64(r.UserInfo.Followers),
		}
	}
	return t
}

// searchResponse is the body of GET /search.php.
type searchResponse struct {
	Timeline []rawTweet `json:"timeline"`
}

// timelineResponse is the body of GET /timeline.php.
type timelineResponse struct {
	User *struct {
		Name     string `json:"name"`
		Verified bool   `json:"blue_verified"`
		Desc     string `json:"desc"`
		SubCount count  `json:"sub_count"`
	} `json:"user"`
	Pinned   *rawTweet  `json:"pinned"`
	Timeline []rawTweet `json:"timeline"`
}
