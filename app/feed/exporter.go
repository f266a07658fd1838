package feed

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
	FormatJSON  ExportFormat = "json"
	FormatRules ExportFormat = "rules"
	FormatXML   ExportFormat = "xml"
)

func ParseExportFormat(value string) (ExportFormat, error) {
	switch format := ExportFormat(strings.ToLower(value)); format {
	case FormatCSV, FormatExcel, FormatJSON, FormatRules, FormatXML:
		return format, nil
	default:
		return "", NewValidationError("format", fmt.Sprintf("unknown export format '%s'", value))
	}
}

func (f ExportFormat) Filename(at time.Time) string {
	date := at.UTC().Format("2006-01-02")
	switch f {
	case FormatExcel:
		return fmt.Sprintf("feed-exclusions-%s.xlsx.csv", date)
	case FormatJSON:
		return fmt.Sprintf("feed-exclusions-%s.json", date)
	case FormatRules:
		return fmt.Sprintf("feed-smart-rules-%s.csv", date)
	case FormatXML:
		return fmt.Sprintf("filtered-feed-%s.xml", date)
	default:
		return fmt.Sprintf("feed-exclusions-%s.csv", date)
	}
}

func (f ExportFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/rss+xml; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ExportData is everything an export sink may need. Items holds the excluded
// items still present in the snapshot, in exclusion order.
type ExportData struct {
	FeedURL     string
	ExcludedIDs []string
	Items       []Item
	Missing     []ItemSummary
	Analysis    Analysis
	Rules       []Rule
	GeneratedAt time.Time
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Run(w io.Writer, format ExportFormat, data ExportData) error {
	switch format {
	case FormatCSV:
		return e.writeCSV(w, data)
	case FormatExcel:
		return e.writeExcel(w, data)
	case FormatJSON:
		return e.writeJSON(w, data)
	case FormatRules:
		return e.writeRulesReport(w, data)
	default:
		return NewValidationError("format", fmt.Sprintf("format '%s' is not a file export", format))
	}
}

func (e *Exporter) writeCSV(w io.Writer, data ExportData) error {
	writer := csv.NewWriter(w)

	rows := [][]string{{"ID", "Title", "Price", "Availability", "Condition", "Product Type", "Link", "Image Link", "Item Group ID"}}
	for _, item := range data.Items {
		rows = append(rows, []string{
			item.ID, item.Title, item.Price, item.Availability, item.Condition,
			item.ProductType, item.Link, item.ImageLink, item.ItemGroupID,
		})
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	return nil
}

// writeExcel produces a spreadsheet-friendly CSV where every cell is quoted.
func (e *Exporter) writeExcel(w io.Writer, data ExportData) error {
	rows := [][]string{
		{"Shopping Feed Exclusions Report"},
		{"Generated:", data.GeneratedAt.Format(time.RFC1123)},
		{"Feed URL:", data.FeedURL},
		{"Total Excluded Items:", strconv.Itoa(len(data.ExcludedIDs))},
		{""},
		{"Excluded Item IDs:"},
	}
	for _, id := range data.ExcludedIDs {
		rows = append(rows, []string{id})
	}
	rows = append(rows,
		[]string{""},
		[]string{"Detailed Item Information:"},
		[]string{"ID", "Title", "Price", "Availability", "Condition", "Product Type", "Link", "Image Link", "Item Group ID", "Brand", "GTIN", "MPN"},
	)
	for _, item := range data.Items {
		rows = append(rows, []string{
			item.ID, item.Title, item.Price, item.Availability, item.Condition, item.ProductType,
			item.Link, item.ImageLink, item.ItemGroupID, item.Brand, item.GTIN, item.MPN,
		})
	}

	var buf bytes.Buffer
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			buf.WriteByte('"')
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write Excel export: %w", err)
	}
	return nil
}

type jsonExport struct {
	Timestamp       string   `json:"timestamp"`
	FeedURL         string   `json:"feedUrl"`
	ExcludedItemIDs []string `json:"excludedItemIds"`
	ExcludedItems   []Item   `json:"excludedItems"`
}

func (e *Exporter) writeJSON(w io.Writer, data ExportData) error {
	payload := jsonExport{
		Timestamp:       data.GeneratedAt.UTC().Format(time.RFC3339),
		FeedURL:         data.FeedURL,
		ExcludedItemIDs: nonNil(data.ExcludedIDs),
		ExcludedItems:   nonNil(data.Items),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to write JSON export: %w", err)
	}
	return nil
}

func (e *Exporter) writeRulesReport(w io.Writer, data ExportData) error {
	a := data.Analysis
	rows := [][]string{
		{"Smart Exclusion Rules Report"},
		{"Generated", data.GeneratedAt.Format(time.RFC1123)},
		{"Feed URL", data.FeedURL},
		{"Total Items", strconv.Itoa(a.TotalItems)},
		{"Total Excluded", strconv.Itoa(a.TotalExcluded)},
		{"Missing From Feed", strconv.Itoa(len(data.Missing))},
		{},
		{"RECOMMENDED RULES"},
		{"Priority", "Type", "Field", "Operator", "Value", "Confidence", "Affected Items", "Description", "Google Merchant Center", "Meta Commerce Manager"},
	}
	for _, r := range data.Rules {
		rows = append(rows, []string{
			string(r.Priority), string(r.Type), r.Field, r.Operator, r.Value,
			strconv.Itoa(r.Confidence) + "%", strconv.Itoa(r.AffectedCount),
			r.Description, r.GoogleRule, r.FacebookRule,
		})
	}
	if len(data.Rules) == 0 {
		rows = append(rows, []string{"No rules met the confidence thresholds"})
	}

	rows = append(rows, patternTable("BRAND ANALYSIS", "Brand", a.Brands)...)
	rows = append(rows, patternTable("CATEGORY ANALYSIS", "Product Type", a.Categories)...)
	rows = append(rows, patternTable("ITEM GROUP ANALYSIS", "Item Group ID", a.ItemGroups)...)
	rows = append(rows, countTable("TITLE KEYWORDS", "Keyword", a.Keywords)...)

	rows = append(rows, []string{}, []string{"PRICE RANGES"}, []string{"Range", "Excluded Items"})
	for _, band := range a.PriceRanges {
		rows = append(rows, []string{band.Label, strconv.Itoa(band.Count)})
	}

	rows = append(rows, countTable("AVAILABILITY", "Availability", a.Availability)...)
	rows = append(rows, countTable("CONDITION", "Condition", a.Conditions)...)

	rows = append(rows,
		[]string{},
		[]string{"IMPLEMENTATION GUIDE: GOOGLE MERCHANT CENTER"},
		[]string{"1", "Open Merchant Center and go to Products > Feeds"},
		[]string{"2", "Select the primary feed and open the Feed rules tab"},
		[]string{"3", "Add a rule for the excluded_destination attribute"},
		[]string{"4", "Add one condition per recommended rule from the Google Merchant Center column"},
		[]string{"5", "Set the value to Shopping_ads and save, then wait for the next feed fetch"},
		[]string{},
		[]string{"IMPLEMENTATION GUIDE: META COMMERCE MANAGER"},
		[]string{"1", "Open Commerce Manager and select the catalog"},
		[]string{"2", "Go to Catalog > Sets and create a new set"},
		[]string{"3", "Add filters matching the Meta Commerce Manager column and invert them to exclude"},
		[]string{"4", "Price range and item group rules have no product set filter; exclude those items by id"},
		[]string{"5", "Use the new set for ads instead of the full catalog"},
	)

	rows = append(rows, []string{}, []string{"EXCLUDED ITEMS"}, []string{"ID", "Title", "Brand", "Product Type", "Price", "Availability", "Item Group ID"})
	for _, item := range data.Items {
		rows = append(rows, []string{item.ID, item.Title, item.Brand, item.ProductType, item.Price, item.Availability, item.ItemGroupID})
	}
	for _, item := range data.Missing {
		rows = append(rows, []string{item.ID, item.Title, item.Brand, item.ProductType, item.Price, "missing from feed", item.ItemGroupID})
	}

	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rules report: %w", err)
	}
	return nil
}

func patternTable(title, label string, stats []PatternStat) [][]string {
	rows := [][]string{{}, {title}, {label, "Excluded", "Total", "Percentage"}}
	for _, s := range stats {
		rows = append(rows, []string{s.Value, strconv.Itoa(s.ExcludedCount), strconv.Itoa(s.TotalCount), strconv.Itoa(s.Percentage) + "%"})
	}
	return rows
}

func countTable(title, label string, stats []CountStat) [][]string {
	rows := [][]string{{}, {title}, {label, "Count"}}
	for _, s := range stats {
		rows = append(rows, []string{s.Value, strconv.Itoa(s.Count)})
	}
	return rows
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
