package runtime

// BinaryData is a binary attachment on an item.
type BinaryData struct {
	Data          []byte `json:"-"`
	FileName      string `json:"fileName,omitempty"`
	FileExtension string `json:"fileExtension,omitempty"`
	MimeType      string `json:"mimeType,omitempty"`
}

// PairedItem links an output item back to the input item that produced it.
type PairedItem struct {
	Item int `json:"item"`
}

// Item is the unit of data flowing between nodes.
type Item struct {
	JSON       map[string]any        `json:"json"`
	Binary     map[string]BinaryData `json:"binary,omitempty"`
	PairedItem *PairedItem           `json:"pairedItem,omitempty"`
}

// NewItem wraps a JSON payload produced for the input item at itemIndex.
func NewItem(json map[string]any, itemIndex int) Item {
	if json == nil {
		json = map[string]any{}
	}
	return Item{JSON: json, PairedItem: &PairedItem{Item: itemIndex}}
}

// JSONItems converts payloads into items without pairing information.
func JSONItems(payloads ...map[string]any) []Item {
	items := make([]Item, 0, len(payloads))
	for _, p := range payloads {
		if p == nil {
			p = map[string]any{}
		}
		items = append(items, Item{JSON: p})
	}
	return items
}
