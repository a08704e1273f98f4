package writer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"smart2onyma/internal/mapping"

	"github.com/shopspring/decimal"
)

// Delimiter separates fields in every export file
const Delimiter = ";"

// Record holds named field values of one row; absent fields render empty
type Record map[string]any

// Writer renders records into a fixed field schema
type Writer struct {
	w      io.Writer
	fields []string
}

// New creates a writer for a ";"-separated field list such as "ABONID;GID;TSID"
func New(w io.Writer, format string) *Writer {
	return &Writer{
		w:      w,
		fields: strings.Split(format, Delimiter),
	}
}

// Fields returns the schema field names in order
func (w *Writer) Fields() []string {
	return w.fields
}

// WriteHeader writes the field names as a row
func (w *Writer) WriteHeader() error {
	_, err := io.WriteString(w.w, strings.Join(w.fields, Delimiter)+Delimiter+"\n")
	return err
}

// Write renders one row in schema order
func (w *Writer) Write(rec Record) error {
	var b strings.Builder
	for _, field := range w.fields {
		value := FormatValue(rec[field])
		if strings.Contains(value, Delimiter) {
			value = `"` + value + `"`
		}
		b.WriteString(value)
		b.WriteString(Delimiter)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w.w, b.String())
	return err
}

// FormatValue renders a field value as text. Money is always printed with two decimals.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case *int64:
		if val == nil {
			return ""
		}
		return strconv.FormatInt(*val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case decimal.Decimal:
		return val.StringFixed(2)
	case decimal.NullDecimal:
		if !val.Valid {
			return ""
		}
		return val.Decimal.StringFixed(2)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// AttrsWriter writes account attributes resolving their names to ids
type AttrsWriter struct {
	*Writer
	maps *mapping.Maps
}

// NewAttrsWriter wraps a writer bound to the accounts-attrs schema
func NewAttrsWriter(w *Writer, maps *mapping.Maps) *AttrsWriter {
	return &AttrsWriter{Writer: w, maps: maps}
}

// WriteAttr writes one attribute row. Unknown attributes and blank values are skipped.
// value may be a string or a []string, the latter is joined with ", ".
func (w *AttrsWriter) WriteAttr(accountID int64, value any, attrName, parentName string) error {
	attrID, ok := w.maps.Attribute(attrName)
	if !ok || attrID == 0 {
		return nil
	}

	var text string
	switch val := value.(type) {
	case []string:
		text = strings.Join(val, ", ")
	default:
		text = FormatValue(val)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parent any = ""
	if parentID, ok := w.maps.Attribute(parentName); ok && parentName != "" {
		parent = parentID
	}

	return w.Write(Record{
		"ABONID":   accountID,
		"ATTRID":   attrID,
		"ATTRIDUP": parent,
		"VALUE":    text,
	})
}

// PropsWriter writes connection properties resolving their names to ids
type PropsWriter struct {
	*Writer
	maps *mapping.Maps
}

// NewPropsWriter wraps a writer bound to the connections-props schema
func NewPropsWriter(w *Writer, maps *mapping.Maps) *PropsWriter {
	return &PropsWriter{Writer: w, maps: maps}
}

// WriteProp writes one property row. An unmapped property name is written as is.
func (w *PropsWriter) WriteProp(usrconnid int64, property string, value any, valuenum any) error {
	var prop any = property
	if id, ok := w.maps.Property(property); ok {
		prop = id
	}
	return w.Write(Record{
		"USRCONNID": usrconnid,
		"PROPERTY":  prop,
		"VALUE":     value,
		"VALUENUM":  valuenum,
	})
}

// WriteResource binds a resource to the connection (property 0, valuenum 10)
func (w *PropsWriter) WriteResource(usrconnid, resourceID int64) error {
	return w.Write(Record{
		"USRCONNID": usrconnid,
		"PROPERTY":  0,
		"VALUE":     resourceID,
		"VALUENUM":  10,
	})
}
