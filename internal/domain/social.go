package domain

import "time"

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:text;uniqueIndex;not null" json:"name"`
}

func (Tag) TableName() string {
	return "tags"
}

// Follow links a follower to the user they follow.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey" json:"followed_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (Follow) TableName() string {
	return "follows"
}

// Collect records a user bookmarking a photo.
type Collect struct {
	CollectorID uint      `gorm:"primaryKey" json:"collector_id"`
	CollectedID uint      `gorm:"primaryKey" json:"collected_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (Collect) TableName() string {
	return "collects"
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Flag      int       `gorm:"default:0" json:"flag"`
	AuthorID  uint      `gorm:"index" json:"author_id"`
	PhotoID   uint      `gorm:"index" json:"photo_id"`
}

func (Comment) TableName() string {
	return "comments"
}
