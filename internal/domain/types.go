package domain

import "time"

type Respondent struct {
	ID        int64
	DNI       string
	Apellido  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FoodCategory struct {
	ID   int64
	Name string
}

type FoodItem struct {
	ID         int64
	Name       string
	Quantity   string // default quantity label, empty when unset
	Grams      *float64
	CategoryID *int64
}

// Category returns the grouping key for the item.
func (f *FoodItem) Category() CategoryKey {
	if f.CategoryID == nil {
		return Uncategorized()
	}
	return Categorized(*f.CategoryID)
}

// FoodResponse is one stored answer of one submission.
type FoodResponse struct {
	ID           int64
	RespondentID int64
	FoodItemID   int64
	Quantity     string
	Frequency    string
	Observations string
	SubmissionID string
	CreatedAt    time.Time
}

// Answer is an answer as received from a client, before the food reference
// is resolved against the catalog.
type Answer struct {
	FoodItemID   int64
	Quantity     string
	Frequency    string
	Observations string
}

// UncategorizedName labels the group of items without a category.
const UncategorizedName = "Sin categoría"

// CategoryKey identifies a catalog group. The zero value is Uncategorized.
type CategoryKey struct {
	id          int64
	categorized bool
}

func Categorized(id int64) CategoryKey { return CategoryKey{id: id, categorized: true} }

func Uncategorized() CategoryKey { return CategoryKey{} }

// ID returns the category id and whether the key refers to a real category.
func (k CategoryKey) ID() (int64, bool) { return k.id, k.categorized }

func (k CategoryKey) IsCategorized() bool { return k.categorized }

// Less orders categorized keys by id and puts Uncategorized last.
func (k CategoryKey) Less(other CategoryKey) bool {
	if k.categorized != other.categorized {
		return k.categorized
	}
	return k.id < other.id
}

// AnswerRow is a stored answer flattened with its respondent, food and
// category. It is the row shape shared by the latest-submission read, the
// per-respondent stats and the export.
type AnswerRow struct {
	RespondentID   int64
	RespondentDNI  string
	RespondentName string
	FoodItemID     int64
	FoodName       string
	Category       CategoryKey
	CategoryName   string
	Quantity       string
	Grams          *float64
	Frequency      string
	Observations   string
	SubmissionID   string
	CreatedAt      time.Time
}

type FoodCount struct {
	Food  string
	Count int64
}

type FoodFrequencyCount struct {
	Food      string
	Frequency string
	Count     int64
}

type CategoryFrequencyCount struct {
	Category     CategoryKey
	CategoryName string
	Frequency    string
	Count        int64
}

// CatalogGroup is one category with its items, as listed to clients.
type CatalogGroup struct {
	Category CategoryKey
	Name     string
	Items    []*FoodItem
}
