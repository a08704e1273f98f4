// Package mapping holds the target billing dictionaries: attribute, property,
// resource, service and status ids plus the export file schemas.
package mapping

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed maps.yaml
var defaultMaps []byte

// ErrMissingKey is returned when a dictionary has no entry for a name
var ErrMissingKey = errors.New("missing mapping key")

// Export file kinds
const (
	FileAccountsList       = "accounts-list"
	FileAccountsAttrs      = "accounts-attrs"
	FileConnectionsNames   = "connections-names"
	FileConnectionsList    = "connections-list"
	FileConnectionsHistory = "connections-status-history"
	FileConnectionsProps   = "connections-props"
	FileTariffsList        = "tariffs-list"
	FileTariffsPolicy      = "tariffs-policy"
	FileTariffsPrices      = "tariffs-prices"
	FileTariffsPersonal    = "tariffs-personal"
	FileTariffsHistory     = "tariffs-history"
	FilePromisedPayments   = "promised-payments"
	FileBalancesList       = "balances-list"
	FilePaymentsList       = "payments-list"
)

var requiredFiles = []string{
	FileAccountsList, FileAccountsAttrs, FileConnectionsNames, FileConnectionsList,
	FileConnectionsHistory, FileConnectionsProps, FileTariffsList, FileTariffsPolicy,
	FileTariffsPrices, FileTariffsPersonal, FileTariffsHistory, FilePromisedPayments,
	FileBalancesList, FilePaymentsList,
}

// Maps is the read-only mapping configuration
type Maps struct {
	Onyma       Dictionaries          `yaml:"onyma"`
	ExportFiles map[string]ExportFile `yaml:"export-files"`
}

// Dictionaries name -> target id tables
type Dictionaries struct {
	TechnologicalTariff int64            `yaml:"technological-tariff"`
	Attributes          map[string]int64 `yaml:"attributes"`
	Properties          map[string]int64 `yaml:"properties"`
	AccountTypes        map[string]int64 `yaml:"account-types"`
	TaxSchemas          map[string]int64 `yaml:"tax-schemas"`
	CreditSchemas       map[string]int64 `yaml:"credit-schemas"`
	Service             map[string]int64 `yaml:"service"`
	Resources           map[string]int64 `yaml:"resources"`
	Status              map[string]int64 `yaml:"status"`
}

// ExportFile is an output file name and its ';' separated column list
type ExportFile struct {
	Filename string
	Format   string
}

// UnmarshalYAML decodes the [filename, format] pair
func (e *ExportFile) UnmarshalYAML(value *yaml.Node) error {
	var pair []string
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("export file at line %d: expected [filename, format]", value.Line)
	}
	e.Filename, e.Format = pair[0], pair[1]
	return nil
}

// Default returns the embedded mapping tables
func Default() (*Maps, error) {
	return Parse(defaultMaps)
}

// Load reads mapping tables from filename, or the embedded ones when empty
func Load(filename string) (*Maps, error) {
	if filename == "" {
		return Default()
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read maps: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates mapping tables
func Parse(data []byte) (*Maps, error) {
	m := &Maps{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse maps: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every key the exporters look up unconditionally
func (m *Maps) Validate() error {
	required := []struct {
		table string
		dict  map[string]int64
		keys  []string
	}{
		{"account-types", m.Onyma.AccountTypes, []string{"person", "company"}},
		{"tax-schemas", m.Onyma.TaxSchemas, []string{"person", "std"}},
		{"credit-schemas", m.Onyma.CreditSchemas, []string{"prepay", "unlimited"}},
		{"status", m.Onyma.Status, []string{"active"}},
		{"resources", m.Onyma.Resources, []string{
			"lk-access", "internet-connection", "internet-connection-net", "dynamic-ip-addr",
			"static-ip-addr", "phone-number", "ctv-connection", "internet-npl", "internet-policy",
		}},
		{"service", m.Onyma.Service, []string{
			"fee-internet", "fee-internet-adsl", "fee-phone-number", "fee-ctv", "fee-channel",
		}},
	}
	for _, r := range required {
		for _, key := range r.keys {
			if _, ok := r.dict[key]; !ok {
				return fmt.Errorf("%w: onyma.%s.%s", ErrMissingKey, r.table, key)
			}
		}
	}
	for _, name := range requiredFiles {
		if _, ok := m.ExportFiles[name]; !ok {
			return fmt.Errorf("%w: export-files.%s", ErrMissingKey, name)
		}
	}
	return nil
}

// ExportFileNames returns the configured export file kinds, sorted
func (m *Maps) ExportFileNames() []string {
	names := make([]string, 0, len(m.ExportFiles))
	for name := range m.ExportFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportFile returns the schema of an export file kind
func (m *Maps) ExportFile(name string) (ExportFile, error) {
	f, ok := m.ExportFiles[name]
	if !ok {
		return ExportFile{}, fmt.Errorf("%w: export-files.%s", ErrMissingKey, name)
	}
	return f, nil
}

// Attribute returns the attribute id for a name
func (m *Maps) Attribute(name string) (int64, bool) {
	id, ok := m.Onyma.Attributes[name]
	return id, ok
}

// Property returns the property id for a name
func (m *Maps) Property(name string) (int64, bool) {
	id, ok := m.Onyma.Properties[name]
	return id, ok
}

// Status returns the status id for a source status name
func (m *Maps) Status(name string) (int64, bool) {
	id, ok := m.Onyma.Status[name]
	return id, ok
}

// AccountType returns the account type id (UTID)
func (m *Maps) AccountType(name string) (int64, error) {
	return lookup(m.Onyma.AccountTypes, "account-types", name)
}

// TaxSchema returns the tax schema id (TSID)
func (m *Maps) TaxSchema(name string) (int64, error) {
	return lookup(m.Onyma.TaxSchemas, "tax-schemas", name)
}

// CreditSchema returns the credit schema id (CSID)
func (m *Maps) CreditSchema(name string) (int64, error) {
	return lookup(m.Onyma.CreditSchemas, "credit-schemas", name)
}

// Service returns the service id (SERVID)
func (m *Maps) Service(name string) (int64, error) {
	return lookup(m.Onyma.Service, "service", name)
}

// Resource returns the resource id (RESID)
func (m *Maps) Resource(name string) (int64, error) {
	return lookup(m.Onyma.Resources, "resources", name)
}

func lookup(dict map[string]int64, table, name string) (int64, error) {
	id, ok := dict[name]
	if !ok {
		return 0, fmt.Errorf("%w: onyma.%s.%s", ErrMissingKey, table, name)
	}
	return id, nil
}
