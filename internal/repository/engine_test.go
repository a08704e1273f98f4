package repository

import (
	"context"
	"testing"
	"testing/fstest"

	"smart2onyma/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBindParams_Postgres(t *testing.T) {
	query, args, err := bindParams(
		"SELECT * FROM t WHERE a = :account_number AND b::text = ':skip' AND c = :conn_id -- :comment\nAND d = :account_number",
		config.DialectPostgres,
		Params{"account_number": "A-1", "conn_id": int64(7)},
	)

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b::text = ':skip' AND c = $2 -- :comment\nAND d = $3", query)
	assert.Equal(t, []any{"A-1", int64(7), "A-1"}, args)
}

func TestBindParams_Oracle(t *testing.T) {
	query, args, err := bindParams("SELECT 1 FROM dual WHERE x = :x AND y = :y", config.DialectOracle, Params{"x": 1, "y": 2})

	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM dual WHERE x = :1 AND y = :2", query)
	assert.Equal(t, []any{1, 2}, args)
}

func TestBindParams_MissingParam(t *testing.T) {
	_, _, err := bindParams("SELECT :absent", config.DialectPostgres, Params{})

	assert.ErrorIs(t, err, ErrMissingParam)
	assert.Contains(t, err.Error(), "absent")
}

func TestNewEngine_UnknownDialect(t *testing.T) {
	_, err := NewEngine(nil, "mysql", DefaultTemplates(), zap.NewNop())

	assert.ErrorIs(t, err, config.ErrUnknownDialect)
}

func TestRender_DialectAndFilters(t *testing.T) {
	templates := fstest.MapFS{
		"q.sql": {Data: []byte(`SELECT {{if eq .dialect "oracle"}}SYSDATE{{else}}now(){{end}} FROM a WHERE n = :n` +
			`{{with index .filters "base-company"}} AND bc IN ({{join .ids}}){{end}}`)},
	}

	pg, err := NewEngine(nil, config.DialectPostgres, templates, zap.NewNop())
	require.NoError(t, err)

	query, args, err := pg.Render("q.sql", Params{"n": "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT now() FROM a WHERE n = $1", query)
	assert.Equal(t, []any{"x"}, args)

	pg.AddFilter("base-company", map[string]any{"ids": []any{1, 2, 3}})
	query, _, err = pg.Render("q.sql", Params{"n": "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT now() FROM a WHERE n = $1 AND bc IN (1, 2, 3)", query)

	pg.ResetFilters()
	query, _, err = pg.Render("q.sql", Params{"n": "x"})
	require.NoError(t, err)
	assert.NotContains(t, query, "bc IN")

	ora, err := NewEngine(nil, config.DialectOracle, templates, zap.NewNop())
	require.NoError(t, err)
	query, _, err = ora.Render("q.sql", Params{"n": "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT SYSDATE FROM a WHERE n = :1", query)
}

func TestRender_UnknownTemplate(t *testing.T) {
	engine, err := NewEngine(nil, config.DialectPostgres, fstest.MapFS{}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = engine.Render("nope.sql", nil)
	assert.Error(t, err)
}

func TestDefaultTemplates_AllRender(t *testing.T) {
	engine, err := NewEngine(nil, config.DialectPostgres, DefaultTemplates(), zap.NewNop())
	require.NoError(t, err)

	params := Params{
		"account_number": "A",
		"acc_type":       "person",
		"conn_id":        int64(1),
		"date_from":      "2020-01-01",
		"tariff_id":      int64(1),
	}
	names := []string{
		"accounts-list.sql", "account-base-info.sql", "account-person-info.sql",
		"account-company-info.sql", "account-contacts.sql", "account-addresses.sql",
		"connections-lk.sql", "connection-statuses.sql", "tariffs-history.sql",
		"discounts.sql", "service-for-internet.sql", "service-with-credit.sql",
		"service-with-credit-list.sql", "phone-number-pools.sql",
		"account-active-promised-payments.sql", "account-payments.sql", "tariffs.sql",
		"tariff-policy.sql", "policy-items.sql", "base-companies.sql",
	}
	for _, name := range names {
		_, _, err := engine.Render(name, params)
		assert.NoError(t, err, name)
	}

	for _, kind := range []string{KindInternet, KindPhone, KindCTV, KindNPL} {
		params["c_type"] = kind
		query, _, err := engine.Render("connections.sql", params)
		require.NoError(t, err, kind)
		assert.Contains(t, query, kind+"_connections")
	}
}

func TestQuery_ScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	engine, err := NewEngine(db, config.DialectPostgres, DefaultTemplates(), zap.NewNop())
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"ACCOUNT_NUMBER"}).
		AddRow([]byte("A-1")).
		AddRow("A-2")
	mock.ExpectQuery(`SELECT\s+a.account_number\s+FROM accounts a`).WillReturnRows(rows)

	result, err := engine.Query(context.Background(), "accounts-list.sql", Params{})

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "A-1", result[0].String("account_number"))
	assert.Equal(t, "A-2", result[1].String("account_number"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryOne_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	engine, err := NewEngine(db, config.DialectPostgres, DefaultTemplates(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectQuery(`FROM accounts a`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	row, err := engine.QueryOne(context.Background(), "account-base-info.sql", Params{"account_number": "missing"})

	require.NoError(t, err)
	assert.Nil(t, row)
	assert.NoError(t, mock.ExpectationsWereMet())
}
