package workbooks

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation/operationtest"
)

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name  string
		index int
	}{
		{"A", 0},
		{"Z", 25},
		{"AA", 26},
		{"AZ", 51},
		{"BA", 52},
		{"ZZ", 701},
		{"AAA", 702},
	}
	for _, tt := range tests {
		if got := ColumnIndex(tt.name); got != tt.index {
			t.Errorf("ColumnIndex(%q): expected %d, got %d", tt.name, tt.index, got)
		}
		if got := ColumnName(tt.index); got != tt.name {
			t.Errorf("ColumnName(%d): expected %q, got %q", tt.index, tt.name, got)
		}
	}
	if got := ColumnIndex("ab"); got != 27 {
		t.Errorf("Expected lower case to parse as 27, got %d", got)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("B2:D10")
	require.NoError(t, err)
	assert.Equal(t, Range{StartCol: 1, StartRow: 2, EndCol: 3, EndRow: 10}, r)
	assert.Equal(t, 3, r.Columns())

	for _, bad := range []string{"", "A1", "A1:B", "1A:2B", "A1-B2"} {
		_, err := ParseRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestRangesAppend(t *testing.T) {
	tests := []struct {
		name      string
		sheet     map[string]any
		wantRange string
		wantRow   int
	}{
		{"after data", map[string]any{"lastNonEmptyRow": 4}, "A6:C6", 6},
		{"empty sheet", map[string]any{"lastNonEmptyRow": -1}, "A1:C1", 1},
		{"missing field", map[string]any{}, "A1:C1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var put operationtest.Recorder
			env := operationtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					operationtest.JSON(w, http.StatusOK, tt.sheet)
					return
				}
				put.Record(r)
				operationtest.JSON(w, http.StatusOK, map[string]any{"a1Notation": "ok"})
			}), Bundle())

			item, err := env.Run(t, rangesAppend, map[string]any{
				"resource": "workbooks", "operation": opRangesAppend,
				"workbookId": "WB", "sheetId": "Sheet1", "headerRange": "A1:C1",
				"columns": map[string]any{"mappingMode": "defineBelow", "value": map[string]any{"A": "x", "C": 3}},
			})
			require.NoError(t, err)

			assert.Equal(t, http.MethodPut, put.Method)
			assert.Equal(t, "/v1.0/doc/workbooks/WB/sheets/Sheet1/ranges/"+tt.wantRange, put.Path)
			assert.Equal(t, operationtest.UnionID, put.Query.Get("operatorId"))
			assert.Equal(t, map[string]any{"values": []any{[]any{"x", "", float64(3)}}}, put.Body)
			assert.Equal(t, tt.wantRange, item.JSON["appendedRange"])
			assert.Equal(t, tt.wantRow, item.JSON["appendedRow"])
		})
	}
}

func TestRangesAppend_RequiresValues(t *testing.T) {
	env := operationtest.New(t, http.NotFoundHandler(), Bundle())

	_, err := env.Run(t, rangesAppend, map[string]any{
		"resource": "workbooks", "operation": opRangesAppend,
		"workbookId": "WB", "sheetId": "S", "headerRange": "A1:C1",
	})
	assert.ErrorContains(t, err, "请至少填写一个字段的值")

	_, err = env.Run(t, rangesAppend, map[string]any{
		"resource": "workbooks", "operation": opRangesAppend,
		"workbookId": "WB", "sheetId": "S", "headerRange": "A1",
		"columns": map[string]any{"mappingMode": "defineBelow", "value": map[string]any{"A": "x"}},
	})
	assert.ErrorContains(t, err, "无效的范围地址")
}

func TestRangesGet_Select(t *testing.T) {
	var rec operationtest.Recorder
	env := operationtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Record(r)
		operationtest.JSON(w, http.StatusOK, map[string]any{"values": []any{[]any{"a"}}})
	}), Bundle())

	_, err := env.Run(t, rangesGet, map[string]any{
		"resource": "workbooks", "operation": opRangesGet,
		"workbookId": map[string]any{"mode": "url", "value": "https://alidocs.dingtalk.com/i/nodes/WB9?x=1"},
		"sheetId":    "S", "rangeAddress": "A1:B2",
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1.0/doc/workbooks/WB9/sheets/S/ranges/A1:B2", rec.Path)
	assert.Equal(t, "values", rec.Query.Get("select"))
}

func TestRowsVisibility(t *testing.T) {
	var rec operationtest.Recorder
	env := operationtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Record(r)
		operationtest.JSON(w, http.StatusOK, map[string]any{"id": "S"})
	}), Bundle())

	_, err := env.Run(t, rowsVisibility, map[string]any{
		"resource": "workbooks", "operation": "workbooks.rows.visibility",
		"workbookId": "WB", "sheetId": "S", "row": 2, "rowCount": 3, "visibility": "hidden",
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1.0/doc/workbooks/WB/sheets/S/setRowsVisibility", rec.Path)
	assert.Equal(t, map[string]any{"row": float64(2), "rowCount": float64(3), "visibility": "hidden"}, rec.Body)

	_, err = env.Run(t, columnsDelete, map[string]any{
		"resource": "workbooks", "operation": "workbooks.columns.delete",
		"workbookId": "WB", "sheetId": "S", "column": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1.0/doc/workbooks/WB/sheets/S/deleteColumns", rec.Path)
	assert.Equal(t, map[string]any{"column": float64(1), "columnCount": float64(1)}, rec.Body)
}
