package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smart2onyma/internal/mapping"
	"smart2onyma/internal/models"
	"smart2onyma/internal/repository"
	"smart2onyma/internal/writer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	tariffs       map[string][]models.Tariff
	policies      map[int64][]string
	creditTypes   []models.CreditServiceType
	policyItems   []models.PolicyItem
	baseCompanies []models.BaseCompany
}

func (f *fakeCatalog) ListTariffs(ctx context.Context, group string) ([]models.Tariff, error) {
	return f.tariffs[group], nil
}

func (f *fakeCatalog) ListTariffPolicies(ctx context.Context, tariffID int64) ([]string, error) {
	return f.policies[tariffID], nil
}

func (f *fakeCatalog) ListCreditServiceTypes(ctx context.Context) ([]models.CreditServiceType, error) {
	return f.creditTypes, nil
}

func (f *fakeCatalog) ListPolicyItems(ctx context.Context) ([]models.PolicyItem, error) {
	return f.policyItems, nil
}

func (f *fakeCatalog) ListBaseCompanies(ctx context.Context) ([]models.BaseCompany, error) {
	return f.baseCompanies, nil
}

func fileWriter(t *testing.T, maps *mapping.Maps, name string) (*writer.Writer, *bytes.Buffer) {
	f, err := maps.ExportFile(name)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	return writer.New(buf, f.Format), buf
}

func TestExportTariffs(t *testing.T) {
	maps := testMaps(t)
	profile := testProfile()
	profile.TariffsPolicyMap = map[string]int64{"POLICY_10M": 900}

	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	next := int64(15)
	src := &fakeCatalog{
		tariffs: map[string][]models.Tariff{
			repository.TariffsInternet: {
				{
					ID: 15, Name: "Home 100", Cnt: 42, Period: "month", Status: 1, ForPerson: true,
					Fee: decimal.NewNullDecimal(decimal.RequireFromString("500")), CreateDate: created,
				},
				{
					ID: 16, Name: "ADSL Lite", Period: "month", Status: models.ArchivedTariffStatus, ForCompany: true,
					NextTariffID: &next, Fee: decimal.NewNullDecimal(decimal.RequireFromString("100")),
					CreateDate: created, ModifyDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
				},
			},
			repository.TariffsPhone: {
				{ID: 20, Name: "Phone", Fee: decimal.NewNullDecimal(decimal.RequireFromString("200")), CreateDate: created},
			},
			repository.TariffsNPL: {
				{ID: 30, Name: "Channel", CreateDate: created},
			},
		},
		policies: map[int64][]string{
			15: {"ssg-account-info=APOLICY_10M", "UNKNOWN"},
		},
	}

	list, listBuf := fileWriter(t, maps, mapping.FileTariffsList)
	policy, policyBuf := fileWriter(t, maps, mapping.FileTariffsPolicy)
	prices, pricesBuf := fileWriter(t, maps, mapping.FileTariffsPrices)

	e := NewCatalogExporter(src, profile, maps, zap.NewNop(), nil)
	require.NoError(t, e.ExportTariffs(context.Background(), TariffSinks{List: list, Policy: policy, Prices: prices}))

	assert.Equal(t, strings.Join([]string{
		"01.01.2020;15;11;Home 100;42;month;;;",
		"01.01.2020;16;12;ADSL Lite;0;month;15;01.06.2023;",
		"01.01.2020;20;13;Phone;0;;;;",
		"01.01.2020;30;15;Channel;0;;;;",
	}, "\n")+"\n", listBuf.String())
	assert.Equal(t, strings.Join([]string{
		"01.01.2020;15;Home 100;;301;590.00;",
		"01.01.2020;16;ADSL Lite;;302;118.00;",
		"01.01.2020;20;Phone;;303;236.00;",
		"01.01.2020;30;Channel;;305;0.00;",
	}, "\n")+"\n", pricesBuf.String())
	assert.Equal(t, "01.01.2020;15;Home 100;;900;\n01.01.2020;15;Home 100;;0;\n", policyBuf.String())
}

func TestExportTariffs_NoPolicyMap(t *testing.T) {
	maps := testMaps(t)
	src := &fakeCatalog{
		tariffs:  map[string][]models.Tariff{repository.TariffsInternet: {{ID: 15, Name: "Home"}}},
		policies: map[int64][]string{15: {"POLICY_10M"}},
	}
	list, _ := fileWriter(t, maps, mapping.FileTariffsList)
	policy, policyBuf := fileWriter(t, maps, mapping.FileTariffsPolicy)
	prices, _ := fileWriter(t, maps, mapping.FileTariffsPrices)

	e := NewCatalogExporter(src, testProfile(), maps, zap.NewNop(), nil)
	require.NoError(t, e.ExportTariffs(context.Background(), TariffSinks{List: list, Policy: policy, Prices: prices}))

	assert.Empty(t, policyBuf.String())
}

func TestExportTariffs_MissingTemplate(t *testing.T) {
	maps := testMaps(t)
	profile := testProfile()
	delete(profile.TariffTemplates, "internet-company")
	src := &fakeCatalog{
		tariffs: map[string][]models.Tariff{repository.TariffsInternet: {{ID: 16, Name: "Corp", ForCompany: true}}},
	}
	list, _ := fileWriter(t, maps, mapping.FileTariffsList)
	policy, _ := fileWriter(t, maps, mapping.FileTariffsPolicy)
	prices, _ := fileWriter(t, maps, mapping.FileTariffsPrices)

	e := NewCatalogExporter(src, profile, maps, zap.NewNop(), nil)
	err := e.ExportTariffs(context.Background(), TariffSinks{List: list, Policy: policy, Prices: prices})

	assert.ErrorContains(t, err, "internet-company")
}

func TestExportCreditServiceTariffs(t *testing.T) {
	maps := testMaps(t)
	src := &fakeCatalog{creditTypes: []models.CreditServiceType{{ID: 3, SvcName: "Router"}, {ID: 4, SvcName: "TV box"}}}
	list, buf := fileWriter(t, maps, mapping.FileTariffsList)

	e := NewCatalogExporter(src, testProfile(), maps, zap.NewNop(), func() time.Time { return testNow })
	require.NoError(t, e.ExportCreditServiceTariffs(context.Background(), list))

	assert.Equal(t, "15.02.2024;3;16;Router;;;;;\n15.02.2024;4;16;TV box;;;;;\n", buf.String())
}

func TestExportPolicies(t *testing.T) {
	maps := testMaps(t)
	profile := testProfile()
	profile.BaseAccountID = 77
	profile.BaseAccountSitename = "base"
	src := &fakeCatalog{policyItems: []models.PolicyItem{
		{ID: 1, Name: "P10", Attribute: "Cisco-AVPair", Value: "a"},
		{ID: 1, Name: "P10", Attribute: "Rate", Value: "10M"},
		{ID: 1, Name: "P10", Attribute: "Cisco-AVPair", Value: "b"},
		{ID: 2, Name: "P20", Attribute: "Rate", Value: "20M"},
	}}
	connList, connBuf := fileWriter(t, maps, mapping.FileConnectionsList)
	propsW, propsBuf := fileWriter(t, maps, mapping.FileConnectionsProps)

	e := NewCatalogExporter(src, profile, maps, zap.NewNop(), func() time.Time { return testNow })
	require.NoError(t, e.ExportPolicies(context.Background(), connList, writer.NewPropsWriter(propsW, maps)))

	assert.Equal(t, "1;77;base;409;1;15.02.2024;1;0;;\n2;77;base;409;1;15.02.2024;1;0;;\n", connBuf.String())
	assert.Equal(t, strings.Join([]string{
		"1;230;HIGH;;",
		"1;231;P10;;",
		"1;Cisco-AVPair;a;1;",
		"1;Cisco-AVPair;b;2;",
		"1;Rate;10M;1;",
		"2;230;HIGH;;",
		"2;231;P20;;",
		"2;Rate;20M;1;",
	}, "\n")+"\n", propsBuf.String())
}

func TestBaseCompanies(t *testing.T) {
	src := &fakeCatalog{baseCompanies: []models.BaseCompany{
		{BaseCompanyID: 3, Name: "North", Cnt: 1200},
		{BaseCompanyID: 5, Name: "South", Cnt: 7},
	}}
	e := NewCatalogExporter(src, testProfile(), testMaps(t), zap.NewNop(), nil)

	companies, err := e.ListBaseCompanies(context.Background())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteBaseCompanies(&out, companies))
	assert.Equal(t, "Company ID Accounts   Company Name\n"+
		"---------- --------   ------------\n"+
		"3          1200       North\n"+
		"5          7          South\n", out.String())

	path := filepath.Join(t.TempDir(), "companies.xlsx")
	require.NoError(t, WriteBaseCompaniesXLSX(path, companies))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Base Companies")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Company ID", "Accounts", "Company Name"},
		{"3", "1200", "North"},
		{"5", "7", "South"},
	}, rows)
}
