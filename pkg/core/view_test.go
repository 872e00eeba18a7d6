package core

import "testing"

func TestElementInfo_Tappable(t *testing.T) {
	tests := []struct {
		info ElementInfo
		want bool
	}{
		{ElementInfo{Visible: true, Enabled: true}, true},
		{ElementInfo{Visible: true, Enabled: false}, false},
		{ElementInfo{Visible: false, Enabled: true}, false},
	}
	for _, tt := range tests {
		if got := tt.info.Tappable(); got != tt.want {
			t.Errorf("Tappable(%+v) = %v, want %v", tt.info, got, tt.want)
		}
	}
}

func TestTableView_NumberOfRows(t *testing.T) {
	v := &TableView{Sections: []int{3, 0}}

	if got := v.NumberOfSections(); got != 2 {
		t.Errorf("NumberOfSections() = %d, want 2", got)
	}
	if n, ok := v.NumberOfRows(1); !ok || n != 0 {
		t.Errorf("NumberOfRows(1) = (%d, %v), want (0, true)", n, ok)
	}
	if _, ok := v.NumberOfRows(2); ok {
		t.Error("NumberOfRows(2) should report a missing section")
	}
	if _, ok := v.NumberOfRows(-1); ok {
		t.Error("NumberOfRows(-1) should report a missing section")
	}
}

func TestCollectionView_NumberOfItems(t *testing.T) {
	v := &CollectionView{Sections: []int{4}}
	if n, ok := v.NumberOfItems(0); !ok || n != 4 {
		t.Errorf("NumberOfItems(0) = (%d, %v), want (4, true)", n, ok)
	}
}

func TestViews_ImplementView(t *testing.T) {
	views := []View{
		&GenericView{}, &TextFieldView{}, &LabelView{}, &ButtonView{},
		&CollectionView{}, &TableView{}, &CellView{},
	}
	for _, v := range views {
		_ = v.Info()
	}
}
