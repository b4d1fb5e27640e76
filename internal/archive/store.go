package archive

import "context"

// Store is the slice of the host archive's persistence the PDF text engine consumes.
type Store interface {
	FindItem(ctx context.Context, id int64) (Item, error)
	ListFiles(ctx context.Context, itemID int64) ([]File, error)

	DeleteElementTexts(ctx context.Context, recordID, recordTypeID int64, elementIDs []int64) (int64, error)
	InsertElementText(ctx context.Context, text ElementText) (int64, error)
	ListElementTexts(ctx context.Context, recordID, recordTypeID, elementID int64) ([]ElementText, error)

	FindElementSetByName(ctx context.Context, name string) (ElementSet, error)
	FindElementByName(ctx context.Context, setName, elementName string) (Element, error)
	InsertElementSet(ctx context.Context, set ElementSet, elements []Element) (ElementSet, error)
	DeleteElementSet(ctx context.Context, id int64) error

	RecordTypeID(ctx context.Context, name string) (int64, error)

	// ItemIDs streams every item ID in ascending order.
	ItemIDs(ctx context.Context) ItemCursor
}

// TextReplacer is implemented by stores that can swap an item's texts for one element in a single transaction.
type TextReplacer interface {
	ReplaceElementTexts(ctx context.Context, recordID, recordTypeID, elementID int64, texts []ElementText) error
}

// ItemCursor yields item IDs one at a time.
//
//	cur := store.ItemIDs(ctx)
//	defer cur.Close()
//	for cur.Next() { use(cur.ID()) }
//	if err := cur.Err(); err != nil { ... }
type ItemCursor interface {
	Next() bool
	ID() int64
	Err() error
	Close() error
}
