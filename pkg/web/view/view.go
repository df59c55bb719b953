package view

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	historymodel "quick-swgoh/pkg/core/history/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Page 页面渲染所需的全部数据
type Page struct {
	CharID         string
	AllyCode       string
	Output         string
	Error          string
	Notice         string
	SignedInAs     string
	HistoryEnabled bool
	History        []HistoryRow
}

type HistoryRow struct {
	When   string
	Kind   string
	Query  string
	Status int
	OK     bool
}

// Rows 把审计记录转换成表格行
func Rows(records []historymodel.LookupRecord) []HistoryRow {
	rows := make([]HistoryRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, HistoryRow{
			When:   r.CreatedAt.Local().Format(time.DateTime),
			Kind:   r.Kind,
			Query:  r.Query,
			Status: r.Status,
			OK:     r.OK,
		})
	}
	return rows
}

// Render 渲染完整页面
func Render(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "index.html", p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
