package model

import "time"

// SubscriberState is the persisted list of chats receiving the weekly broadcast.
type SubscriberState struct {
	ChatIDs   []int64   `json:"chat_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}
