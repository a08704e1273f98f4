package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfile_IncludeAndMaps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base/common.yaml", `
sql-dialect: oracle
connection-uri: smart:secret@old-db:1521/SMART
domain-id: 7
tariffs-map-file: tariffs.csv
static-ip-pools:
  pool-b: 10.1.0.0/16
  pool-a: 10.0.0.0/16
tariff-templates:
  internet-person: 101
`)
	writeFile(t, dir, "base/tariffs.csv", "OLD_TMID;newtmid\n15;1015\n16;1016\n")
	writeFile(t, dir, "groups.csv", "\ufeffНазвание группы;Группа\nКорпоративные;42\n")
	profilePath := writeFile(t, dir, "city.yaml", `
include: base/common.yaml
sql-dialect: postgres
connection-uri: smart:secret@new-db:5432/smart
groups-map-file: groups.csv
limit: 100
dayly-write-off-fix: true
periodic-service-mapping:
  5: 9005
filters:
  - name: base-company
    id: 3
`)

	p, err := LoadProfile(profilePath)
	require.NoError(t, err)

	assert.Equal(t, "postgres", p.SQLDialect)
	assert.Equal(t, "smart:secret@new-db:5432/smart", p.ConnectionURI)
	assert.Equal(t, int64(7), p.DomainID)
	assert.Equal(t, 100, p.Limit)
	assert.True(t, p.DaylyWriteOffFix)
	assert.Equal(t, map[int64]int64{15: 1015, 16: 1016}, p.TariffsMap)
	assert.Equal(t, map[string]int64{"Корпоративные": 42}, p.GroupsMap)
	assert.Equal(t, map[int64]int64{5: 9005}, p.PeriodicServiceMapping)
	assert.Equal(t, NamedNetworks{
		{Name: "pool-b", CIDR: "10.1.0.0/16"},
		{Name: "pool-a", CIDR: "10.0.0.0/16"},
	}, p.StaticIPPools)

	tmid, err := p.TariffTemplate("internet-person")
	require.NoError(t, err)
	assert.Equal(t, int64(101), tmid)
	_, err = p.TariffTemplate("npl")
	assert.Error(t, err)

	filters := p.FilterParams()
	require.Contains(t, filters, "base-company")
	assert.Equal(t, 3, filters["base-company"]["id"])
	assert.NotContains(t, filters["base-company"], "name")
}

func TestLoadProfile_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.yaml", "sql-dialect: postgres\nconnection-uri: u:p@h/db\n")

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultExportDataDir, p.ExportDataDir)
	assert.Equal(t, DefaultADSLMatchRE, p.TariffsADSLMatchRE)
	assert.Equal(t, DefaultConnectionKinds, p.ConnectionKinds)
	assert.Equal(t, OnErrorStop, p.OnError)
	assert.Equal(t, 9*3600, offsetOf(p))
	assert.Empty(t, p.TariffsMap)
	assert.Empty(t, p.GroupsMap)
}

func offsetOf(p *Profile) int {
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, p.Location()).Zone()
	return offset
}

func TestLoadProfile_TimezoneOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.yaml", "sql-dialect: postgres\nconnection-uri: u:p@h/db\ntimezone-offset-hours: 0\n")

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, offsetOf(p))
}

func TestLoadProfile_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadProfile(writeFile(t, dir, "no-dialect.yaml", "connection-uri: u:p@h/db\n"))
	assert.Error(t, err)

	_, err = LoadProfile(writeFile(t, dir, "bad-mode.yaml", "sql-dialect: postgres\nconnection-uri: u\non-error: retry\n"))
	assert.Error(t, err)

	_, err = LoadProfile(writeFile(t, dir, "bad-kind.yaml", "sql-dialect: postgres\nconnection-uri: u\nconnection-kinds: [lk, adsl]\n"))
	assert.Error(t, err)

	_, err = LoadProfile(writeFile(t, dir, "loop.yaml", "include: loop.yaml\n"))
	assert.Error(t, err)

	_, err = LoadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTariffsMap_BadValue(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tariffs.csv", "OLD_TMID;newtmid\nabc;1\n")

	_, err := LoadTariffsMap(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tariffs.csv:2")
}
