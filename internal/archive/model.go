package archive

import "time"

// RecordTypeItem is the record type name element texts use when attached to items.
const RecordTypeItem = "Item"

// Item is an archive record. Files and element texts hang off its ID.
type Item struct {
	ID       int64
	Added    time.Time
	Modified time.Time
}

// File is a stored attachment belonging to exactly one item.
type File struct {
	ID               int64
	ItemID           int64
	ArchiveFilename  string
	OriginalFilename string
	MimeBrowser      string
	Size             int64
	Order            int
	Added            time.Time
}

// ElementSet groups schema elements under a unique name.
type ElementSet struct {
	ID          int64
	Name        string
	Description string
}

// Element is one field of an element set.
type Element struct {
	ID           int64
	ElementSetID int64
	Name         string
	Description  string
	Order        int
}

// ElementText is a text value of an element attached to a record.
type ElementText struct {
	ID           int64
	RecordID     int64
	RecordTypeID int64
	ElementID    int64
	HTML         bool
	Text         string
}
