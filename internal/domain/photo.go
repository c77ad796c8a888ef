package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxAltTextLength is the upper bound, in characters, of generated alt text.
const MaxAltTextLength = 160

// MaxAutoTags is the upper bound on stored object tags per photo.
const MaxAutoTags = 12

// Photo is an uploaded photo. AutoAltText and AutoTagsJSON are derived
// fields written only by the ML backfill; nil means "not computed".
type Photo struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	Filename     string    `gorm:"type:text;not null" json:"filename"`
	FilenameS    string    `gorm:"column:filename_s;type:text" json:"filename_s"`
	FilenameM    string    `gorm:"column:filename_m;type:text" json:"filename_m"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
	CanComment   bool      `gorm:"default:true" json:"can_comment"`
	Flag         int       `gorm:"default:0" json:"flag"`
	AuthorID     uint      `gorm:"index" json:"author_id"`
	AutoAltText  *string   `gorm:"column:auto_alt_text;type:text" json:"auto_alt_text,omitempty"`
	AutoTagsJSON *string   `gorm:"column:auto_tags_json;type:text" json:"auto_tags_json,omitempty"`
	Tags         []*Tag    `gorm:"many2many:photo_tags;" json:"tags,omitempty"`
}

func (Photo) TableName() string {
	return "photos"
}

// HasDescription reports whether the user supplied a non-empty description.
func (p *Photo) HasDescription() bool {
	return p.Description != nil && *p.Description != ""
}

// HasAltText reports whether alt text was already generated.
func (p *Photo) HasAltText() bool {
	return p.AutoAltText != nil && *p.AutoAltText != ""
}

// HasAutoTags reports whether the tag list was already computed. An empty
// JSON list ("[]") counts as computed.
func (p *Photo) HasAutoTags() bool {
	return p.AutoTagsJSON != nil && *p.AutoTagsJSON != ""
}

// SetAutoTags serializes tags into AutoTagsJSON.
func (p *Photo) SetAutoTags(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	s := string(b)
	p.AutoTagsJSON = &s
	return nil
}

// AutoTags decodes AutoTagsJSON; an absent value yields nil.
func (p *Photo) AutoTags() ([]string, error) {
	if !p.HasAutoTags() {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(*p.AutoTagsJSON)), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
