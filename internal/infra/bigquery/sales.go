package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const timestampFormat = "2006-01-02 15:04:05"

// TableRef names a BigQuery table holding coffee sales rows.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

// String returns the fully qualified `project.dataset.table` name.
func (r TableRef) String() string {
	return fmt.Sprintf("%s.%s.%s", r.Project, r.Dataset, r.Table)
}

// ParseTableURI parses bq://project/dataset/table.
func ParseTableURI(uri string) (TableRef, error) {
	if !strings.HasPrefix(uri, "bq://") {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI: %s", uri)
	}
	parts := strings.Split(strings.TrimPrefix(uri, "bq://"), "/")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI (want bq://project/dataset/table): %s", uri)
	}
	for _, p := range parts {
		if p == "" {
			return TableRef{}, fmt.Errorf("invalid BigQuery URI (empty segment): %s", uri)
		}
	}
	return TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}

// SalesWarehouse reads sales tables from BigQuery. It holds a shared
// client so repeated loads reuse one connection.
type SalesWarehouse struct {
	client *bigquery.Client
}

// NewSalesWarehouse creates a warehouse with a client for projectID.
// An empty projectID falls back to the project detected from credentials.
func NewSalesWarehouse(ctx context.Context, projectID string) (*SalesWarehouse, error) {
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewSalesWarehouse: creating client: %w", err)
	}
	return &SalesWarehouse{client: client}, nil
}

// NewSalesWarehouseWithClient wraps an existing client.
func NewSalesWarehouseWithClient(client *bigquery.Client) *SalesWarehouse {
	return &SalesWarehouse{client: client}
}

// Close closes the BigQuery client connection.
func (w *SalesWarehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// LastModified returns the table's last modification time, used as the
// cache version for bq:// sources.
func (w *SalesWarehouse) LastModified(ctx context.Context, uri string) (time.Time, error) {
	ref, err := ParseTableURI(uri)
	if err != nil {
		return time.Time{}, err
	}
	md, err := w.client.DatasetInProject(ref.Project, ref.Dataset).Table(ref.Table).Metadata(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("LastModified: table metadata %s: %w", ref, err)
	}
	return md.LastModifiedTime, nil
}

// ReadRecords reads the whole table at uri as text records. The first
// record is the header of column names.
func (w *SalesWarehouse) ReadRecords(ctx context.Context, uri string) ([][]string, error) {
	ref, err := ParseTableURI(uri)
	if err != nil {
		return nil, err
	}
	return ReadRecordsWithClient(ctx, w.client, ref)
}

// ReadRecordsWithClient reads all rows of ref using the provided client.
func ReadRecordsWithClient(ctx context.Context, client *bigquery.Client, ref TableRef) ([][]string, error) {
	q := client.Query(fmt.Sprintf("SELECT * FROM `%s`", ref))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadRecords: query read: %w", err)
	}

	var records [][]string
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadRecords: iterating rows: %w", err)
		}
		if records == nil {
			records = append(records, schemaHeader(it.Schema))
		}
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = FormatValue(v)
		}
		records = append(records, rec)
	}
	if records == nil {
		records = [][]string{schemaHeader(it.Schema)}
	}
	return records, nil
}

func schemaHeader(schema bigquery.Schema) []string {
	header := make([]string, len(schema))
	for i, f := range schema {
		header[i] = f.Name
	}
	return header
}

// FormatValue renders a BigQuery cell in the textual form the loader
// parses for spreadsheet and CSV sources.
func FormatValue(v bigquery.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case *big.Rat:
		if x == nil {
			return ""
		}
		return strings.TrimRight(strings.TrimRight(x.FloatString(9), "0"), ".")
	case civil.Date:
		return x.String()
	case civil.Time:
		return fmt.Sprintf("%02d:%02d:%02d", x.Hour, x.Minute, x.Second)
	case civil.DateTime:
		return fmt.Sprintf("%s %02d:%02d:%02d", x.Date, x.Time.Hour, x.Time.Minute, x.Time.Second)
	case time.Time:
		return x.UTC().Format(timestampFormat)
	default:
		return fmt.Sprint(x)
	}
}
