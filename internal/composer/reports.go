package composer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"github.com/Proton-105/skyexchange-bot/internal/api"
)

// ReportFields lists the CSV columns of each monthly admin report, keyed by report type.
var ReportFields = map[string][]string{
	"deals":        {"id", "lot", "amount", "crypto", "created", "end", "status", "buyer", "seller", "income"},
	"promocodes":   {"code", "amount", "count", "activations", "deleted", "created", "user"},
	"lots":         {"id", "created_at", "broker", "rate", "user", "created", "active", "coefficient"},
	"exchange":     {"id", "created_at", "nickname", "from_symbol", "to_symbol", "rate", "amount_sent", "amount_received", "commission"},
	"users":        {"nickname", "lang", "telegram_id", "created", "deleted", "baned", "verify", "rating"},
	"transactions": {"type", "to_address", "commission", "tx_hash", "created_at", "processed_at", "amount", "is_confirmed", "is_deleted"},
	"income":       {"date", "transactions_income", "deals_income", "merchants_income", "total_income"},
	"merchants":    {"date", "merchants_income"},
	"control":      {"id", "buyer", "buyer_email", "seller", "state", "requisite", "created_at", "end_time", "amount_currency", "payment_id", "sell_id", "ip"},
	"campaigns":    {"id", "name", "registrations", "deals", "deals_revenue"},
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		// matches the capitalised booleans the reports always had
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// CSV writes rows with a header. When fields is empty the columns are the sorted union of row keys.
func CSV(rows api.Report, fields []string) ([]byte, error) {
	if len(fields) == 0 {
		seen := map[string]bool{}
		for _, row := range rows {
			for k := range row {
				if !seen[k] {
					seen[k] = true
					fields = append(fields, k)
				}
			}
		}
		sort.Strings(fields)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	record := make([]string, len(fields))
	for _, row := range rows {
		for i, f := range fields {
			record[i] = cell(row[f])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ReportFile packs rows into a CSV document named name.csv.
func ReportFile(name string, rows api.Report, fields []string) (*Attachment, error) {
	content, err := CSV(rows, fields)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", name, err)
	}
	return &Attachment{Kind: KindDocument, Name: name + ".csv", Content: content}, nil
}

// UserReportFiles builds the per-user export of one report kind. separated splits the rows
// into one file per creation month, named "<month>.<year>-<kind>.csv".
func UserReportFiles(kind string, rows api.Report, separated bool) ([]*Attachment, error) {
	if !separated {
		f, err := ReportFile(kind, rows, nil)
		if err != nil {
			return nil, err
		}
		return []*Attachment{f}, nil
	}

	groups := map[string]api.Report{}
	var order []string
	for _, row := range rows {
		created := api.ParseTime(cell(row["created"]))
		key := fmt.Sprintf("%d.%d", int(created.Month()), created.Year())
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	files := make([]*Attachment, 0, len(order))
	for _, key := range order {
		f, err := ReportFile(key+"-"+kind, groups[key], nil)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// AllReports exports every report kind of a user, one file each, in name order.
func AllReports(reports api.Reports) ([]*Attachment, error) {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	files := make([]*Attachment, 0, len(names))
	for _, name := range names {
		f, err := ReportFile(name, reports[name], nil)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
