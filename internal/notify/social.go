package notify

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/analytics"
	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/twitter"
)

const (
	defaultDigestTweets = 3
	maxDigestTweets     = 10
	tweetTextLimit      = 200
)

// Replier posts a reply to a notification it delivered earlier.
type Replier interface {
	Name() string
	Reply(ctx context.Context, messageID, text string) error
}

var _ Replier = (*TelegramSink)(nil)

// SocialDigest replies to a delivered alert with what Twitter says about the
// token: the top search results for its mint and the project's own timeline.
type SocialDigest struct {
	source    twitter.Source
	replier   Replier
	maxTweets int
	now       func() time.Time
	logger    *zap.Logger
}

// NewSocialDigest creates a SocialDigest. maxTweets is clamped to [1, 10];
// zero selects 3.
func NewSocialDigest(source twitter.Source, replier Replier, maxTweets int, logger *zap.Logger) *SocialDigest {
	switch {
	case maxTweets <= 0:
		maxTweets = defaultDigestTweets
	case maxTweets > maxDigestTweets:
		maxTweets = maxDigestTweets
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocialDigest{
		source:    source,
		replier:   replier,
		maxTweets: maxTweets,
		now:       time.Now,
		logger:    logger.Named("social"),
	}
}

// FollowUp replies to the replier's message in r. It is a no-op when r holds
// no receipt from the replier. A failed search or timeline lookup still
// produces a digest from whatever did load; it fails only when both fail.
func (d *SocialDigest) FollowUp(ctx context.Context, s *domain.CohortSignal, r Receipt) error {
	parent, ok := r.Find(d.replier.Name())
	if !ok {
		return nil
	}

	mentions, searchErr := d.source.Search(ctx, s.Token, twitter.SearchTop)
	if searchErr != nil {
		d.logger.Warn("tweet search failed", zap.String("token", s.Token), zap.Error(searchErr))
	}

	var timeline *twitter.Timeline
	if s.Info != nil && s.Info.TwitterHandle != "" {
		tl, err := d.source.UserTimeline(ctx, s.Info.TwitterHandle)
		if err != nil {
			d.logger.Warn("timeline lookup failed",
				zap.String("handle", s.Info.TwitterHandle), zap.Error(err))
		} else {
			timeline = tl
		}
	}

	if searchErr != nil && timeline == nil {
		observability.RecordSinkDelivery("social", searchErr)
		return fmt.Errorf("social digest for %s: %w", s.Token, searchErr)
	}

	text := FormatSocialDigest(s, mentions, timeline, d.maxTweets, d.now().Unix())
	err := d.replier.Reply(ctx, parent.MessageID, text)
	observability.RecordSinkDelivery("social", err)
	if err != nil {
		return fmt.Errorf("reply to %s message %s: %w", parent.Sink, parent.MessageID, err)
	}
	return nil
}

// FormatSocialDigest renders mentions (most viewed first) and the project
// timeline as Telegram HTML. now is unix seconds.
func FormatSocialDigest(s *domain.CohortSignal, mentions []twitter.Tweet, tl *twitter.Timeline, maxTweets int, now int64) string {
	var b strings.Builder

	title := shortAddress(s.Token)
	if s.Info != nil && s.Info.Symbol != "" {
		title = "$" + s.Info.Symbol
	}
	fmt.Fprintf(&b, "<b>Social: %s</b>\n", html.EscapeString(title))

	if len(mentions) == 0 && tl == nil {
		b.WriteString("No tweets found for this token.")
		return b.String()
	}

	if len(mentions) > 0 {
		var views, engagement int64
		for _, t := range mentions {
			views += t.Views
			engagement += t.Engagement()
		}
		fmt.Fprintf(&b, "\nMentions: %d tweets, %s views, %s engagements\n",
			len(mentions), compactCount(views), compactCount(engagement))

		top := make([]twitter.Tweet, len(mentions))
		copy(top, mentions)
		sort.SliceStable(top, func(i, j int) bool { return top[i].Views > top[j].Views })
		if len(top) > maxTweets {
			top = top[:maxTweets]
		}
		for _, t := range top {
			fmt.Fprintf(&b, "• <b>@%s</b> (%s followers)%s, %s views\n  %s\n",
				html.EscapeString(t.Author.ScreenName),
				compactCount(t.Author.Followers),
				tweetAge(t, now),
				compactCount(t.Views),
				html.EscapeString(clip(t.Text, tweetTextLimit)))
		}
	}

	if tl != nil {
		fmt.Fprintf(&b, "\n<b>@%s</b>", html.EscapeString(tl.User.ScreenName))
		if tl.User.Verified {
			b.WriteString(" ✓")
		}
		fmt.Fprintf(&b, ", %s followers\n", compactCount(tl.User.Followers))
		if tl.User.Description != "" {
			fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(clip(tl.User.Description, tweetTextLimit)))
		}
		for i, t := range tl.Tweets {
			if i >= maxTweets {
				break
			}
			label := "Post"
			if t.Pinned {
				label = "Pinned"
			}
			fmt.Fprintf(&b, "• %s%s: %s\n", label, tweetAge(t, now), html.EscapeString(clip(t.Text, tweetTextLimit)))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func tweetAge(t twitter.Tweet, now int64) string {
	if t.CreatedAt.IsZero() {
		return ""
	}
	return " " + analytics.FormatTimeAgo(t.CreatedAt.Unix(), now)
}

// clip shortens s to at most n runes, flattening newlines.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func compactCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
