package export

import (
	"context"
	"time"

	"smart2onyma/internal/models"
)

// Source is what the client data export reads from the legacy billing
type Source interface {
	CountAccounts(ctx context.Context) (int64, error)
	ListAccounts(ctx context.Context) ([]string, error)
	GetAccount(ctx context.Context, accountNumber string) (*models.Account, error)
	GetPersonInfo(ctx context.Context, accountNumber string) (*models.PersonInfo, error)
	GetCompanyInfo(ctx context.Context, accountNumber string) (*models.CompanyInfo, error)
	ListContacts(ctx context.Context, accountNumber string) ([]models.Contact, error)
	ListAddresses(ctx context.Context, accountNumber, accType string) ([]models.Address, error)
	ListConnections(ctx context.Context, accountNumber, kind string) ([]models.Connection, error)
	ListConnectionStatuses(ctx context.Context, connID int64) ([]models.StatusEntry, error)
	ListTariffHistory(ctx context.Context, connID int64, dateFrom time.Time) ([]models.TariffChange, error)
	ListDiscounts(ctx context.Context, connID int64) ([]models.Discount, error)
	ListInternetPeriodicServices(ctx context.Context) ([]models.PeriodicService, error)
	ListCreditServices(ctx context.Context) ([]models.CreditService, error)
	ListPhoneNumberPools(ctx context.Context) ([]models.PhoneNumberPool, error)
	ListActivePromisedPayments(ctx context.Context) ([]models.PromisedPayment, error)
	ListPayments(ctx context.Context, accountNumber string) ([]models.Payment, error)
}

// CatalogSource is what the tariff, policy and base company exports read
type CatalogSource interface {
	ListTariffs(ctx context.Context, group string) ([]models.Tariff, error)
	ListTariffPolicies(ctx context.Context, tariffID int64) ([]string, error)
	ListCreditServiceTypes(ctx context.Context) ([]models.CreditServiceType, error)
	ListPolicyItems(ctx context.Context) ([]models.PolicyItem, error)
	ListBaseCompanies(ctx context.Context) ([]models.BaseCompany, error)
}
