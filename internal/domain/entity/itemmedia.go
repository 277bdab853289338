package entity

import "time"

// ItemMedia records the object-storage mirror of an item's hero image.
type ItemMedia struct {
	ItemID      string
	SourceURL   string
	ObjectKey   string
	ContentType string
	ByteCount   int64
	UpdatedAt   time.Time
}

// Validate validates the ItemMedia entity's required fields.
func (m *ItemMedia) Validate() error {
	if m.ItemID == "" {
		return &ValidationError{Field: "item_id", Message: "item_id is required"}
	}
	if m.SourceURL == "" {
		return &ValidationError{Field: "source_url", Message: "source_url is required"}
	}
	if err := ValidateURL(m.SourceURL); err != nil {
		return err
	}
	if m.ObjectKey == "" {
		return &ValidationError{Field: "object_key", Message: "object_key is required"}
	}
	return nil
}
