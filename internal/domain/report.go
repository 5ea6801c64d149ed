package domain

import "time"

// CleanupReport counts rows removed by a retention pass.
type CleanupReport struct {
	Articles int
	Posts    int
	Jobs     int
	Images   int
}

// DailyStat is the per-day activity tally.
type DailyStat struct {
	Day              time.Time
	ArticlesIngested int
	PostsPublished   int
}

// AccountInfo is the identity returned by the platform for a live session.
type AccountInfo struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Followers int64  `json:"followers"`
}

// Media is the platform's record of an uploaded post.
type Media struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	URL  string `json:"url"`
}

// PublishResult is the outcome of one publish attempt. On failure Error and
// Kind describe what went wrong and Err keeps the original error.
type PublishResult struct {
	PostID      int64     `json:"post_id"`
	Success     bool      `json:"success"`
	ExternalID  string    `json:"external_id,omitempty"`
	ExternalURL string    `json:"external_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	Kind        ErrorKind `json:"kind,omitempty"`
	Err         error     `json:"-"`
}

// Failed builds an unsuccessful result from err.
func Failed(postID int64, err error) PublishResult {
	return PublishResult{PostID: postID, Error: err.Error(), Kind: Classify(err), Err: err}
}
