package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types
const (
	AccTypePerson  = "person"
	AccTypeCompany = "company"
)

// Internet connection types
const (
	ConnTypePPPoE = "pppoe"
	ConnTypeIPoE  = "ipoe"
)

// ArchivedTariffStatus marks a tariff closed in the source billing
const ArchivedTariffStatus = 2

// Account base account row (account-base-info)
type Account struct {
	ID                int64
	AccountNumber     string
	AccType           string
	GroupName         string
	CreateDate        time.Time
	NotificationEmail string
	NotificationSMS   string
	NotificationFax   string
	Manager           string
	ChildBalance      decimal.Decimal
	// Now is the database clock at the moment of the query
	Now time.Time
}

// PersonInfo private person details
type PersonInfo struct {
	ID             int64
	BirthDay       *time.Time
	BirthPlace     string
	SecretWord     string
	FirstName      string
	LastName       string
	SecondName     string
	PassportSeries string
	PassportNumber string
	PassportDate   *time.Time
	PassportIssuer string
}

// CompanyInfo legal entity details
type CompanyInfo struct {
	ID      int64
	CoName  string
	LawName string
	INN     string
	KPP     string
	OGRN    string
	OKONH   string
	OKPO    string
	EISUP   string
}

// Contact one contact record of an account
type Contact struct {
	ID       int64
	TypeName string
	Info     string
}

// Address one address of an account, AddressType is the parent attribute name
type Address struct {
	ID          int64
	AddressType string
	Zip         string
	State       string
	City        string
	Street      string
	Num         string
	Building    string
	Block       string
	Flat        string
}

// Connection service authorization object in the source billing
type Connection struct {
	ConnID        int64
	AccountID     int64
	AccountNumber string
	TariffID      int64
	TariffFee     decimal.Decimal
	Status        string
	ConnType      string
	// StartIP and EndIP are IPv4 addresses as integers, nil when not assigned
	StartIP     *int64
	EndIP       *int64
	Login       string
	Password    string
	Description string
	Router      string
	PhoneNumber string
	ATSName     string
	Platform1   string
	Platform2   string
}

// StatusEntry one status change of a connection
type StatusEntry struct {
	StartDate time.Time
	Status    string
}

// TariffChange one historical tariff of a connection
type TariffChange struct {
	StartDate time.Time
	TariffID  int64
}

// Discount discount attached to a connection
type Discount struct {
	DiscountID  int64
	StartDate   time.Time
	Description string
}

// PeriodicService periodic service on an internet connection
type PeriodicService struct {
	ConnID     int64
	ID         int64
	Name       string
	Price      decimal.NullDecimal
	CountPrice decimal.NullDecimal
	Amount     decimal.Decimal
	StatusDate time.Time
}

// CreditService service sold on credit, paid monthly
type CreditService struct {
	ConnID               int64
	TypeID               int64
	Name                 string
	CreditMonthlyPayment decimal.Decimal
	StartDate            time.Time
	EndDate              time.Time
}

// PhoneNumberPool phone number range of a zone
type PhoneNumberPool struct {
	StartANI int64
	EndANI   int64
	ZoneCode string
	Comments string
}

// PromisedPayment active promised payment of an account
type PromisedPayment struct {
	AccountNumber string
	Amount        decimal.Decimal
	ExpireDate    time.Time
}

// Payment historical payment
type Payment struct {
	AccountNumber string
	PaymentDate   time.Time
	Sum           decimal.Decimal
}

// Tariff tariff plan of the source billing
type Tariff struct {
	ID           int64
	Name         string
	Cnt          int64
	Fee          decimal.NullDecimal
	Period       string
	NextTariffID *int64
	Status       int64
	CreateDate   time.Time
	ModifyDate   time.Time
	ForCompany   bool
	ForPerson    bool
}

// CreditServiceType service type that can be sold on credit
type CreditServiceType struct {
	ID      int64
	SvcName string
}

// PolicyItem one attribute value of a RADIUS policy
type PolicyItem struct {
	ID        int64
	Name      string
	Attribute string
	Value     string
}

// BaseCompany base company with its account count
type BaseCompany struct {
	BaseCompanyID int64
	Name          string
	Cnt           int64
}
