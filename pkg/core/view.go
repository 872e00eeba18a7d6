package core

// View is a read-only projection of a resolved UI element.
// Actors return one of the concrete projections below so callers can
// narrow with a type switch or locator.ViewAs.
type View interface {
	Info() ElementInfo
}

// ElementInfo represents information about a UI element
type ElementInfo struct {
	ID                 string            `json:"id,omitempty"`
	Identifier         string            `json:"identifier,omitempty"`
	Type               string            `json:"type,omitempty"`
	Text               string            `json:"text,omitempty"`
	AccessibilityLabel string            `json:"accessibilityLabel,omitempty"`
	Bounds             Bounds            `json:"bounds"`
	Visible            bool              `json:"visible"`
	Enabled            bool              `json:"enabled"`
	Selected           bool              `json:"selected,omitempty"`
}

// Tappable reports whether the element can receive a tap.
func (e ElementInfo) Tappable() bool {
	return e.Visible && e.Enabled
}

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GenericView is any element without a more specific projection.
type GenericView struct {
	ElementInfo
}

// Info returns the element information.
func (v *GenericView) Info() ElementInfo { return v.ElementInfo }

// TextFieldView is an editable text element (text field, secure field, search bar).
type TextFieldView struct {
	ElementInfo
	Placeholder string
}

// Info returns the element information.
func (v *TextFieldView) Info() ElementInfo { return v.ElementInfo }

// LabelView is static text.
type LabelView struct {
	ElementInfo
}

// Info returns the element information.
func (v *LabelView) Info() ElementInfo { return v.ElementInfo }

// ButtonView is a button; Selected mirrors its selected state.
type ButtonView struct {
	ElementInfo
}

// Info returns the element information.
func (v *ButtonView) Info() ElementInfo { return v.ElementInfo }

// CollectionView is a collection container.
// Sections holds the item count of each section, in order.
type CollectionView struct {
	ElementInfo
	Sections []int
}

// Info returns the element information.
func (v *CollectionView) Info() ElementInfo { return v.ElementInfo }

// NumberOfSections returns the section count.
func (v *CollectionView) NumberOfSections() int { return len(v.Sections) }

// NumberOfItems returns the item count of section, and false when the section does not exist.
func (v *CollectionView) NumberOfItems(section int) (int, bool) {
	return itemsIn(v.Sections, section)
}

// TableView is a table container.
// Sections holds the row count of each section, in order.
type TableView struct {
	ElementInfo
	Sections []int
}

// Info returns the element information.
func (v *TableView) Info() ElementInfo { return v.ElementInfo }

// NumberOfSections returns the section count.
func (v *TableView) NumberOfSections() int { return len(v.Sections) }

// NumberOfRows returns the row count of section, and false when the section does not exist.
func (v *TableView) NumberOfRows(section int) (int, bool) {
	return itemsIn(v.Sections, section)
}

// CellView is a cell inside a collection or table.
type CellView struct {
	ElementInfo
	Section int
	Item    int
}

// Info returns the element information.
func (v *CellView) Info() ElementInfo { return v.ElementInfo }

func itemsIn(sections []int, section int) (int, bool) {
	if section < 0 || section >= len(sections) {
		return 0, false
	}
	return sections[section], true
}
