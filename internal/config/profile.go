package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 16

// Defaults applied when the profile leaves a key out
const (
	DefaultExportDataDir  = "export_data/"
	DefaultADSLMatchRE    = ".*ADSL.*"
	DefaultTimezoneOffset = 9
	OnErrorStop           = "stop"
	OnErrorContinue       = "continue"
)

// DefaultConnectionKinds is the order connections are exported in
var DefaultConnectionKinds = []string{"lk", "internet", "ctv", "npl"}

var knownConnectionKinds = map[string]bool{
	"lk": true, "internet": true, "phone": true, "ctv": true, "npl": true,
}

// keys holding paths relative to the profile file they appear in
var profilePathKeys = map[string]bool{
	"tariffs-map-file":  true,
	"groups-map-file":   true,
	"sql-templates-dir": true,
}

// Profile is one export profile: source database, client maps and export options
type Profile struct {
	Include         string `yaml:"include"`
	SQLDialect      string `yaml:"sql-dialect"`
	ConnectionURI   string `yaml:"connection-uri"`
	SQLTemplatesDir string `yaml:"sql-templates-dir"`
	ExportDataDir   string `yaml:"export-data-dir"`

	// Filters are exposed to SQL templates as filters[name] = params
	Filters []map[string]any `yaml:"filters"`

	Limit            int  `yaml:"limit"`
	DaylyWriteOffFix bool `yaml:"dayly-write-off-fix"`

	TariffsMapFile string           `yaml:"tariffs-map-file"`
	GroupsMapFile  string           `yaml:"groups-map-file"`
	TariffsMap     map[int64]int64  `yaml:"-"`
	GroupsMap      map[string]int64 `yaml:"-"`

	TariffTemplates     map[string]int64 `yaml:"tariff-templates"`
	DomainID            int64            `yaml:"domain-id"`
	StaticIPPools       NamedNetworks    `yaml:"static-ip-pools"`
	BaseAccountID       int64            `yaml:"base-account-id"`
	BaseAccountSitename string           `yaml:"base-account-sitename"`

	TariffsPolicyMap        map[string]int64 `yaml:"tariffs-policy-map"`
	PeriodicServiceMapping  map[int64]int64  `yaml:"periodic-service-mapping"`
	CreditServiceMapping    map[int64]int64  `yaml:"credit-service-mapping"`
	DiscountsServiceMapping map[int64]int64  `yaml:"discounts-service-mapping"`

	TariffsADSLMatchRE  string   `yaml:"tariffs-adsl-match-re"`
	TimezoneOffsetHours *int     `yaml:"timezone-offset-hours"`
	ConnectionKinds     []string `yaml:"connection-kinds"`
	OnError             string   `yaml:"on-error"`
}

// NamedNetwork is one configured static IP pool
type NamedNetwork struct {
	Name string
	CIDR string
}

// NamedNetworks keeps the YAML mapping order, pools are matched first to last
type NamedNetworks []NamedNetwork

// UnmarshalYAML decodes a name -> CIDR mapping preserving key order
func (n *NamedNetworks) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("static-ip-pools: expected mapping, got line %d", value.Line)
	}
	pools := make(NamedNetworks, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		pools = append(pools, NamedNetwork{
			Name: value.Content[i].Value,
			CIDR: value.Content[i+1].Value,
		})
	}
	*n = pools
	return nil
}

// FilterParams returns filters keyed by name, without the name entry itself
func (p *Profile) FilterParams() map[string]map[string]any {
	filters := make(map[string]map[string]any, len(p.Filters))
	for _, f := range p.Filters {
		name, _ := f["name"].(string)
		if name == "" {
			continue
		}
		params := make(map[string]any, len(f))
		for k, v := range f {
			if k != "name" {
				params[k] = v
			}
		}
		filters[name] = params
	}
	return filters
}

// Location is the fixed zone status history timestamps are rendered in
func (p *Profile) Location() *time.Location {
	hours := DefaultTimezoneOffset
	if p.TimezoneOffsetHours != nil {
		hours = *p.TimezoneOffsetHours
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", hours), hours*3600)
}

// TariffTemplate returns the target tariff template id by name
func (p *Profile) TariffTemplate(name string) (int64, error) {
	id, ok := p.TariffTemplates[name]
	if !ok {
		return 0, fmt.Errorf("no tariff template %q in profile", name)
	}
	return id, nil
}

// LoadProfile reads a profile, resolving includes and the CSV map files
func LoadProfile(filename string) (*Profile, error) {
	root, err := loadProfileNode(filename, 0)
	if err != nil {
		return nil, err
	}

	profile := &Profile{}
	if err := root.Decode(profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", filename, err)
	}
	applyProfileDefaults(profile)

	if profile.TariffsMapFile != "" {
		profile.TariffsMap, err = LoadTariffsMap(profile.TariffsMapFile)
		if err != nil {
			return nil, err
		}
	}
	if profile.GroupsMapFile != "" {
		profile.GroupsMap, err = LoadGroupsMap(profile.GroupsMapFile)
		if err != nil {
			return nil, err
		}
	}

	if err := profile.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", filename, err)
	}
	return profile, nil
}

func applyProfileDefaults(p *Profile) {
	if p.ExportDataDir == "" {
		p.ExportDataDir = DefaultExportDataDir
	}
	if p.TariffsADSLMatchRE == "" {
		p.TariffsADSLMatchRE = DefaultADSLMatchRE
	}
	if len(p.ConnectionKinds) == 0 {
		p.ConnectionKinds = append([]string(nil), DefaultConnectionKinds...)
	}
	if p.OnError == "" {
		p.OnError = OnErrorStop
	}
	if p.TariffsMap == nil {
		p.TariffsMap = map[int64]int64{}
	}
	if p.GroupsMap == nil {
		p.GroupsMap = map[string]int64{}
	}
}

func (p *Profile) validate() error {
	if p.SQLDialect == "" {
		return errors.New("sql-dialect is required")
	}
	if p.ConnectionURI == "" {
		return errors.New("connection-uri is required")
	}
	if p.OnError != OnErrorStop && p.OnError != OnErrorContinue {
		return fmt.Errorf("on-error must be %q or %q, got %q", OnErrorStop, OnErrorContinue, p.OnError)
	}
	for _, kind := range p.ConnectionKinds {
		if !knownConnectionKinds[kind] {
			return fmt.Errorf("unknown connection kind %q", kind)
		}
	}
	return nil
}

// loadProfileNode returns the merged top-level mapping of a profile and its includes
func loadProfileNode(filename string, depth int) (*yaml.Node, error) {
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("profile include depth exceeded at %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", filename, err)
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(doc.Content) > 0 {
		node = doc.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("profile %s: top level must be a mapping", filename)
	}

	dir := filepath.Dir(filename)
	var include string
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if profilePathKeys[key] && val.Value != "" && !filepath.IsAbs(val.Value) {
			val.Value = filepath.Join(dir, val.Value)
		}
		if key == "include" {
			include = val.Value
		}
	}

	if include == "" {
		return node, nil
	}

	parent, err := loadProfileNode(filepath.Join(dir, include), depth+1)
	if err != nil {
		return nil, err
	}
	mergeMapping(parent, node)
	return parent, nil
}

// mergeMapping overrides parent top-level keys with the child's
func mergeMapping(parent, child *yaml.Node) {
	for i := 0; i+1 < len(child.Content); i += 2 {
		key, val := child.Content[i], child.Content[i+1]
		replaced := false
		for j := 0; j+1 < len(parent.Content); j += 2 {
			if parent.Content[j].Value == key.Value {
				parent.Content[j+1] = val
				replaced = true
				break
			}
		}
		if !replaced {
			parent.Content = append(parent.Content, key, val)
		}
	}
}

// LoadTariffsMap reads the OLD_TMID;newtmid tariff map
func LoadTariffsMap(filename string) (map[int64]int64, error) {
	data := map[int64]int64{}
	err := readDictCSV(filename, func(row map[string]string) error {
		oldID, err := strconv.ParseInt(strings.TrimSpace(row["OLD_TMID"]), 10, 64)
		if err != nil {
			return fmt.Errorf("bad OLD_TMID %q: %w", row["OLD_TMID"], err)
		}
		newID, err := strconv.ParseInt(strings.TrimSpace(row["newtmid"]), 10, 64)
		if err != nil {
			return fmt.Errorf("bad newtmid %q: %w", row["newtmid"], err)
		}
		data[oldID] = newID
		return nil
	})
	return data, err
}

// LoadGroupsMap reads the group name -> target group id map
func LoadGroupsMap(filename string) (map[string]int64, error) {
	data := map[string]int64{}
	err := readDictCSV(filename, func(row map[string]string) error {
		gid, err := strconv.ParseInt(strings.TrimSpace(row["Группа"]), 10, 64)
		if err != nil {
			return fmt.Errorf("bad group id %q: %w", row["Группа"], err)
		}
		data[row["Название группы"]] = gid
		return nil
	})
	return data, err
}

// readDictCSV walks a ';' separated file with a header row
func readDictCSV(filename string, fn func(row map[string]string) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", filename, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s:%d: %w", filename, line, err)
		}
	}
}
