package domain

// ItemDetail holds attributes extracted from a product detail page.
// Colors and PhotoLinks are index-aligned.
type ItemDetail struct {
	Gender     string   `json:"gender"`
	Sizes      []string `json:"sizes"`
	Colors     []string `json:"colors"`
	PhotoLinks []string `json:"photo_links"`
}

type Item struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Price  string `json:"price"`
	Gender string `json:"gender"`
}

type Size struct {
	ItemID int64  `json:"item_id"`
	Size   string `json:"size"`
}

type Color struct {
	ItemID   int64  `json:"item_id"`
	Color    string `json:"color"`
	PhotoURL string `json:"photo_url"`
}

// ColorRows pairs colors with photo links positionally. When the two
// sequences differ in length the extra tail of the longer one is dropped
// and truncated reports true.
func (d *ItemDetail) ColorRows(itemID int64) (rows []Color, truncated bool) {
	n := min(len(d.Colors), len(d.PhotoLinks))
	rows = make([]Color, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Color{ItemID: itemID, Color: d.Colors[i], PhotoURL: d.PhotoLinks[i]})
	}
	return rows, len(d.Colors) != len(d.PhotoLinks)
}

// Variants returns the size and color rows for an item that has no id yet.
func (d *ItemDetail) Variants() (v ItemVariants, truncated bool) {
	colors, truncated := d.ColorRows(0)
	return ItemVariants{Sizes: d.SizeRows(0), Colors: colors}, truncated
}

// ItemVariants are the size and color rows stored together with an item.
type ItemVariants struct {
	Sizes  []Size
	Colors []Color
}

// WithItemID returns a copy of v with every row pointing at itemID.
func (v ItemVariants) WithItemID(itemID int64) ItemVariants {
	out := ItemVariants{
		Sizes:  make([]Size, len(v.Sizes)),
		Colors: make([]Color, len(v.Colors)),
	}
	for i, s := range v.Sizes {
		s.ItemID = itemID
		out.Sizes[i] = s
	}
	for i, c := range v.Colors {
		c.ItemID = itemID
		out.Colors[i] = c
	}
	return out
}

// SizeRows returns one row per size.
func (d *ItemDetail) SizeRows(itemID int64) []Size {
	rows := make([]Size, 0, len(d.Sizes))
	for _, s := range d.Sizes {
		rows = append(rows, Size{ItemID: itemID, Size: s})
	}
	return rows
}

type InsertStatus int

const (
	InsertStatusInserted InsertStatus = iota
	InsertStatusAlreadyExists
)

func (s InsertStatus) String() string {
	switch s {
	case InsertStatusInserted:
		return "inserted"
	case InsertStatusAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// InsertOutcome is the result of a store-level item insert. ItemID is set
// only when Status is InsertStatusInserted.
type InsertOutcome struct {
	Status InsertStatus
	ItemID int64
}

func Inserted(id int64) InsertOutcome {
	return InsertOutcome{Status: InsertStatusInserted, ItemID: id}
}

func AlreadyExists() InsertOutcome {
	return InsertOutcome{Status: InsertStatusAlreadyExists}
}
