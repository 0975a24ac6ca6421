package social

import "time"

// Message is one post from the social stream.
type Message struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}
