package repository

import (
	"context"
	"time"

	"smart2onyma/internal/models"

	"go.uber.org/zap"
)

// Connection kinds
const (
	KindLK       = "lk"
	KindInternet = "internet"
	KindPhone    = "phone"
	KindCTV      = "ctv"
	KindNPL      = "npl"
)

// Tariff groups exported by the tariffs command
const (
	TariffsInternet = "internet"
	TariffsPhone    = "phone"
	TariffsCTV      = "ctv"
	TariffsNPL      = "npl"
)

// SmartRepository reads the legacy billing through the query engine
type SmartRepository struct {
	engine *Engine
	logger *zap.Logger
}

// NewSmartRepository creates a new source repository
func NewSmartRepository(engine *Engine, logger *zap.Logger) *SmartRepository {
	return &SmartRepository{
		engine: engine,
		logger: logger,
	}
}

// CountAccounts estimates how many accounts the current filters select
func (r *SmartRepository) CountAccounts(ctx context.Context) (int64, error) {
	row, err := r.engine.QueryOne(ctx, "accounts-list.sql", Params{"estimate_count": true})
	if err != nil || row == nil {
		return 0, err
	}
	return row.Int64("total"), nil
}

// ListAccounts returns account numbers selected by the current filters
func (r *SmartRepository) ListAccounts(ctx context.Context) ([]string, error) {
	rows, err := r.engine.Query(ctx, "accounts-list.sql", Params{})
	if err != nil {
		return nil, err
	}
	accounts := make([]string, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.String("account_number"))
	}
	return accounts, nil
}

// GetAccount returns the base account row, nil when the account does not exist
func (r *SmartRepository) GetAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	row, err := r.engine.QueryOne(ctx, "account-base-info.sql", Params{"account_number": accountNumber})
	if err != nil || row == nil {
		return nil, err
	}
	return &models.Account{
		ID:                row.Int64("id"),
		AccountNumber:     row.String("account_number"),
		AccType:           row.String("acc_type"),
		GroupName:         row.String("group_name"),
		CreateDate:        row.Time("create_date"),
		NotificationEmail: row.String("notification_email"),
		NotificationSMS:   row.String("notification_sms"),
		NotificationFax:   row.String("notification_fax"),
		Manager:           row.String("manager"),
		ChildBalance:      row.Decimal("child_balance"),
		Now:               row.Time("now"),
	}, nil
}

// GetPersonInfo returns private person details, nil when absent
func (r *SmartRepository) GetPersonInfo(ctx context.Context, accountNumber string) (*models.PersonInfo, error) {
	row, err := r.engine.QueryOne(ctx, "account-person-info.sql", Params{"account_number": accountNumber})
	if err != nil || row == nil {
		return nil, err
	}
	return &models.PersonInfo{
		ID:             row.Int64("id"),
		BirthDay:       row.NullTime("birth_day"),
		BirthPlace:     row.String("birth_place"),
		SecretWord:     row.String("secret_word"),
		FirstName:      row.String("first_name"),
		LastName:       row.String("last_name"),
		SecondName:     row.String("second_name"),
		PassportSeries: row.String("passport_series"),
		PassportNumber: row.String("passport_number"),
		PassportDate:   row.NullTime("passport_date"),
		PassportIssuer: row.String("passport_issuer"),
	}, nil
}

// GetCompanyInfo returns legal entity details, nil when absent
func (r *SmartRepository) GetCompanyInfo(ctx context.Context, accountNumber string) (*models.CompanyInfo, error) {
	row, err := r.engine.QueryOne(ctx, "account-company-info.sql", Params{"account_number": accountNumber})
	if err != nil || row == nil {
		return nil, err
	}
	return &models.CompanyInfo{
		ID:      row.Int64("id"),
		CoName:  row.String("co_name"),
		LawName: row.String("law_name"),
		INN:     row.String("inn"),
		KPP:     row.String("kpp"),
		OGRN:    row.String("ogrn"),
		OKONH:   row.String("okonh"),
		OKPO:    row.String("okpo"),
		EISUP:   row.String("eisup"),
	}, nil
}

// ListContacts returns account contacts
func (r *SmartRepository) ListContacts(ctx context.Context, accountNumber string) ([]models.Contact, error) {
	rows, err := r.engine.Query(ctx, "account-contacts.sql", Params{"account_number": accountNumber})
	if err != nil {
		return nil, err
	}
	contacts := make([]models.Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, models.Contact{
			ID:       row.Int64("id"),
			TypeName: row.String("type_name"),
			Info:     row.String("info"),
		})
	}
	return contacts, nil
}

// ListAddresses returns account addresses for the account type
func (r *SmartRepository) ListAddresses(ctx context.Context, accountNumber, accType string) ([]models.Address, error) {
	rows, err := r.engine.Query(ctx, "account-addresses.sql", Params{
		"account_number": accountNumber,
		"acc_type":       accType,
	})
	if err != nil {
		return nil, err
	}
	addresses := make([]models.Address, 0, len(rows))
	for _, row := range rows {
		addresses = append(addresses, models.Address{
			ID:          row.Int64("id"),
			AddressType: row.String("address_type"),
			Zip:         row.String("zip"),
			State:       row.String("state"),
			City:        row.String("city"),
			Street:      row.String("street"),
			Num:         row.String("num"),
			Building:    row.String("building"),
			Block:       row.String("block"),
			Flat:        row.String("flat"),
		})
	}
	return addresses, nil
}

// ListConnections returns the account's connections of one kind in source order
func (r *SmartRepository) ListConnections(ctx context.Context, accountNumber, kind string) ([]models.Connection, error) {
	name := "connections.sql"
	if kind == KindLK {
		// personal cabinet access lives in its own table
		name = "connections-lk.sql"
	}
	rows, err := r.engine.Query(ctx, name, Params{"c_type": kind, "account_number": accountNumber})
	if err != nil {
		return nil, err
	}
	connections := make([]models.Connection, 0, len(rows))
	for _, row := range rows {
		connections = append(connections, models.Connection{
			ConnID:        row.Int64("conn_id"),
			AccountID:     row.Int64("account_id"),
			AccountNumber: row.String("account_number"),
			TariffID:      row.Int64("tariff_id"),
			TariffFee:     row.Decimal("tariff_fee"),
			Status:        row.String("status"),
			ConnType:      row.String("conn_type"),
			StartIP:       row.NullInt64("start_ip"),
			EndIP:         row.NullInt64("end_ip"),
			Login:         row.String("login"),
			Password:      row.String("password"),
			Description:   row.String("description"),
			Router:        row.String("router"),
			PhoneNumber:   row.String("phone_number"),
			ATSName:       row.String("ats_name"),
			Platform1:     row.String("platform1"),
			Platform2:     row.String("platform2"),
		})
	}
	return connections, nil
}

// ListConnectionStatuses returns the status history of a connection, oldest first
func (r *SmartRepository) ListConnectionStatuses(ctx context.Context, connID int64) ([]models.StatusEntry, error) {
	rows, err := r.engine.Query(ctx, "connection-statuses.sql", Params{"conn_id": connID})
	if err != nil {
		return nil, err
	}
	entries := make([]models.StatusEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.StatusEntry{
			StartDate: row.Time("start_date"),
			Status:    row.String("status"),
		})
	}
	return entries, nil
}

// ListTariffHistory returns tariff changes of a connection since dateFrom
func (r *SmartRepository) ListTariffHistory(ctx context.Context, connID int64, dateFrom time.Time) ([]models.TariffChange, error) {
	rows, err := r.engine.Query(ctx, "tariffs-history.sql", Params{"conn_id": connID, "date_from": dateFrom})
	if err != nil {
		return nil, err
	}
	changes := make([]models.TariffChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, models.TariffChange{
			StartDate: row.Time("start_date"),
			TariffID:  row.Int64("tariff_id"),
		})
	}
	return changes, nil
}

// ListDiscounts returns active discounts of a connection
func (r *SmartRepository) ListDiscounts(ctx context.Context, connID int64) ([]models.Discount, error) {
	rows, err := r.engine.Query(ctx, "discounts.sql", Params{"conn_id": connID})
	if err != nil {
		return nil, err
	}
	discounts := make([]models.Discount, 0, len(rows))
	for _, row := range rows {
		discounts = append(discounts, models.Discount{
			DiscountID:  row.Int64("discount_id"),
			StartDate:   row.Time("start_date"),
			Description: row.String("description"),
		})
	}
	return discounts, nil
}

// ListInternetPeriodicServices returns every active periodic service on internet connections
func (r *SmartRepository) ListInternetPeriodicServices(ctx context.Context) ([]models.PeriodicService, error) {
	rows, err := r.engine.Query(ctx, "service-for-internet.sql", Params{})
	if err != nil {
		return nil, err
	}
	services := make([]models.PeriodicService, 0, len(rows))
	for _, row := range rows {
		services = append(services, models.PeriodicService{
			ConnID:     row.Int64("conn_id"),
			ID:         row.Int64("id"),
			Name:       row.String("name"),
			Price:      row.NullDecimal("price"),
			CountPrice: row.NullDecimal("count_price"),
			Amount:     row.Decimal("amount"),
			StatusDate: row.Time("status_date"),
		})
	}
	return services, nil
}

// ListCreditServices returns every running service credit
func (r *SmartRepository) ListCreditServices(ctx context.Context) ([]models.CreditService, error) {
	rows, err := r.engine.Query(ctx, "service-with-credit.sql", Params{})
	if err != nil {
		return nil, err
	}
	services := make([]models.CreditService, 0, len(rows))
	for _, row := range rows {
		services = append(services, models.CreditService{
			ConnID:               row.Int64("conn_id"),
			TypeID:               row.Int64("type_id"),
			Name:                 row.String("name"),
			CreditMonthlyPayment: row.Decimal("credit_monthly_payment"),
			StartDate:            row.Time("start_date"),
			EndDate:              row.Time("end_date"),
		})
	}
	return services, nil
}

// ListCreditServiceTypes returns service types sold on credit
func (r *SmartRepository) ListCreditServiceTypes(ctx context.Context) ([]models.CreditServiceType, error) {
	rows, err := r.engine.Query(ctx, "service-with-credit-list.sql", Params{})
	if err != nil {
		return nil, err
	}
	types := make([]models.CreditServiceType, 0, len(rows))
	for _, row := range rows {
		types = append(types, models.CreditServiceType{
			ID:      row.Int64("id"),
			SvcName: row.String("svc_name"),
		})
	}
	return types, nil
}

// ListPhoneNumberPools returns phone number ranges in load order
func (r *SmartRepository) ListPhoneNumberPools(ctx context.Context) ([]models.PhoneNumberPool, error) {
	rows, err := r.engine.Query(ctx, "phone-number-pools.sql", Params{})
	if err != nil {
		return nil, err
	}
	pools := make([]models.PhoneNumberPool, 0, len(rows))
	for _, row := range rows {
		pools = append(pools, models.PhoneNumberPool{
			StartANI: row.Int64("start_ani"),
			EndANI:   row.Int64("end_ani"),
			ZoneCode: row.String("zone_code"),
			Comments: row.String("comments"),
		})
	}
	return pools, nil
}

// ListActivePromisedPayments returns promised payments not yet expired
func (r *SmartRepository) ListActivePromisedPayments(ctx context.Context) ([]models.PromisedPayment, error) {
	rows, err := r.engine.Query(ctx, "account-active-promised-payments.sql", Params{})
	if err != nil {
		return nil, err
	}
	payments := make([]models.PromisedPayment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, models.PromisedPayment{
			AccountNumber: row.String("account_number"),
			Amount:        row.Decimal("amount"),
			ExpireDate:    row.Time("expire_date"),
		})
	}
	return payments, nil
}

// ListPayments returns the payment history of an account
func (r *SmartRepository) ListPayments(ctx context.Context, accountNumber string) ([]models.Payment, error) {
	rows, err := r.engine.Query(ctx, "account-payments.sql", Params{"account_number": accountNumber})
	if err != nil {
		return nil, err
	}
	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, models.Payment{
			AccountNumber: row.String("account_number"),
			PaymentDate:   row.Time("payment_date"),
			Sum:           row.Decimal("sum"),
		})
	}
	return payments, nil
}

// ListTariffs returns tariffs of one group (internet, phone, ctv, npl)
func (r *SmartRepository) ListTariffs(ctx context.Context, group string) ([]models.Tariff, error) {
	params := Params{}
	switch group {
	case TariffsPhone:
		params["phone_tariffs"] = true
	case TariffsCTV:
		params["ctv_tariffs"] = true
	case TariffsNPL:
		params["npl_tariffs"] = true
	}
	rows, err := r.engine.Query(ctx, "tariffs.sql", params)
	if err != nil {
		return nil, err
	}
	tariffs := make([]models.Tariff, 0, len(rows))
	for _, row := range rows {
		tariffs = append(tariffs, models.Tariff{
			ID:           row.Int64("id"),
			Name:         row.String("name"),
			Cnt:          row.Int64("cnt"),
			Fee:          row.NullDecimal("fee"),
			Period:       row.String("period"),
			NextTariffID: row.NullInt64("next_tariff_id"),
			Status:       row.Int64("status"),
			CreateDate:   row.Time("create_date"),
			ModifyDate:   row.Time("modify_date"),
			ForCompany:   row.Bool("forcompany"),
			ForPerson:    row.Bool("forperson"),
		})
	}
	return tariffs, nil
}

// ListTariffPolicies returns raw policy values of a tariff
func (r *SmartRepository) ListTariffPolicies(ctx context.Context, tariffID int64) ([]string, error) {
	rows, err := r.engine.Query(ctx, "tariff-policy.sql", Params{"tariff_id": tariffID})
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.String("value"))
	}
	return values, nil
}

// ListPolicyItems returns RADIUS policy items ordered by policy
func (r *SmartRepository) ListPolicyItems(ctx context.Context) ([]models.PolicyItem, error) {
	rows, err := r.engine.Query(ctx, "policy-items.sql", Params{})
	if err != nil {
		return nil, err
	}
	items := make([]models.PolicyItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.PolicyItem{
			ID:        row.Int64("id"),
			Name:      row.String("name"),
			Attribute: row.String("attribute"),
			Value:     row.String("value"),
		})
	}
	return items, nil
}

// ListBaseCompanies returns base companies with account counts
func (r *SmartRepository) ListBaseCompanies(ctx context.Context) ([]models.BaseCompany, error) {
	rows, err := r.engine.Query(ctx, "base-companies.sql", Params{})
	if err != nil {
		return nil, err
	}
	companies := make([]models.BaseCompany, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, models.BaseCompany{
			BaseCompanyID: row.Int64("base_company_id"),
			Name:          row.String("name"),
			Cnt:           row.Int64("cnt"),
		})
	}
	return companies, nil
}
