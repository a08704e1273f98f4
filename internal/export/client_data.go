package export

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"smart2onyma/internal/config"
	"smart2onyma/internal/mapping"
	"smart2onyma/internal/models"
	"smart2onyma/internal/writer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FailMode decides what happens after an account fails with an error
type FailMode string

const (
	// FailStop ends the batch after the first failed account
	FailStop FailMode = config.OnErrorStop
	// FailContinue logs the failure and goes on with the next account
	FailContinue FailMode = config.OnErrorContinue
)

// ParseFailMode accepts "stop" or "continue"
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(s) {
	case FailStop, FailContinue:
		return FailMode(s), nil
	case "":
		return FailStop, nil
	}
	return "", fmt.Errorf("unknown fail mode %q", s)
}

// ClientDataSinks are the output streams of the client data export
type ClientDataSinks struct {
	Accounts         *writer.Writer
	Attrs            *writer.AttrsWriter
	ConnNames        *writer.Writer
	ConnList         *writer.Writer
	StatusHistory    *writer.Writer
	Props            *writer.PropsWriter
	TariffsPersonal  *writer.Writer
	TariffsHistory   *writer.Writer
	PromisedPayments *writer.Writer
	Balances         *writer.Writer
	Payments         *writer.Writer
}

// Options tune one client data run
type Options struct {
	// Accounts restricts the run to these account numbers, in order
	Accounts []string
	// Skip lists account numbers never exported
	Skip []string
	// Limit stops the run after so many processed accounts, 0 means no limit
	Limit      int
	Categories Categories
	// TariffsHistoryFrom enables tariff history rows starting at this date
	TariffsHistoryFrom *time.Time
	FailMode           FailMode
	// Progress receives the "estimate/processed/errors" line, nil disables it
	Progress io.Writer
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Result summarises a client data run
type Result struct {
	Estimate      int64
	Processed     int
	Failed        int
	ErrorAccounts int
	Groups        []string
}

// ClientDataExporter exports accounts with their connections, balances and payments
type ClientDataExporter struct {
	src     Source
	profile *config.Profile
	maps    *mapping.Maps
	alloc   *Allocator
	errs    *ErrorsCounter
	sinks   ClientDataSinks
	ipPools *IPPools
	logger  *zap.Logger
}

// NewClientDataExporter creates the exporter. Mapping tables and profile are read only.
func NewClientDataExporter(
	src Source,
	profile *config.Profile,
	maps *mapping.Maps,
	alloc *Allocator,
	errs *ErrorsCounter,
	sinks ClientDataSinks,
	logger *zap.Logger,
) (*ClientDataExporter, error) {
	ipPools, err := NewIPPools(profile.StaticIPPools)
	if err != nil {
		return nil, err
	}
	return &ClientDataExporter{
		src:     src,
		profile: profile,
		maps:    maps,
		alloc:   alloc,
		errs:    errs,
		sinks:   sinks,
		ipPools: ipPools,
		logger:  logger,
	}, nil
}

// runState is shared by every account of one run; it is read only after preload
type runState struct {
	opts     Options
	now      time.Time
	phones   *PhoneNumberPools
	promised map[string][]models.PromisedPayment
	periodic map[int64][]models.PeriodicService
	credits  map[int64][]models.CreditService

	// today is now in the profile zone; calendar dates and month lengths use it
	today time.Time
}

// Run preloads shared data and exports every selected account in turn
func (e *ClientDataExporter) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Categories == nil {
		opts.Categories = NewCategories()
	}
	if opts.FailMode == "" {
		opts.FailMode = FailStop
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	now := clock()
	st := &runState{opts: opts, now: now, today: now.In(e.profile.Location())}
	result := &Result{}

	e.logger.Info("Loading phone number pools")
	pools, err := e.src.ListPhoneNumberPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load phone number pools: %w", err)
	}
	st.phones = NewPhoneNumberPools(pools)

	if len(opts.Accounts) > 0 {
		result.Estimate = int64(len(opts.Accounts))
	} else {
		e.logger.Info("Counting accounts")
		if result.Estimate, err = e.src.CountAccounts(ctx); err != nil {
			return nil, fmt.Errorf("failed to count accounts: %w", err)
		}
	}

	e.logger.Info("Preloading promised payments")
	payments, err := e.src.ListActivePromisedPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load promised payments: %w", err)
	}
	st.promised = make(map[string][]models.PromisedPayment)
	for _, p := range payments {
		st.promised[p.AccountNumber] = append(st.promised[p.AccountNumber], p)
	}

	accounts := opts.Accounts
	if len(accounts) == 0 {
		e.logger.Info("Loading accounts")
		if accounts, err = e.src.ListAccounts(ctx); err != nil {
			return nil, fmt.Errorf("failed to load accounts: %w", err)
		}
	}

	e.logger.Info("Preloading periodic services")
	services, err := e.src.ListInternetPeriodicServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load periodic services: %w", err)
	}
	st.periodic = make(map[int64][]models.PeriodicService)
	for _, s := range services {
		st.periodic[s.ConnID] = append(st.periodic[s.ConnID], s)
	}

	e.logger.Info("Preloading credit services")
	credits, err := e.src.ListCreditServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credit services: %w", err)
	}
	st.credits = make(map[int64][]models.CreditService)
	for _, c := range credits {
		st.credits[c.ConnID] = append(st.credits[c.ConnID], c)
	}

	skip := make(map[string]struct{}, len(opts.Skip))
	for _, acc := range opts.Skip {
		skip[acc] = struct{}{}
	}

	e.logger.Info("Exporting accounts",
		zap.Int64("estimate", result.Estimate),
		zap.String("items", opts.Categories.String()),
		zap.String("on_error", string(opts.FailMode)),
	)

	var fatal error
	for _, accountNumber := range accounts {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}
		if _, ok := skip[accountNumber]; ok {
			continue
		}

		if err := e.exportAccount(ctx, st, accountNumber); err != nil {
			result.Failed++
			e.errs.Error(accountNumber, err.Error())
			e.logger.Error("Failed to export account",
				zap.String("account_number", accountNumber),
				zap.Error(err),
			)
			if opts.FailMode == FailStop {
				fatal = fmt.Errorf("account %s: %w", accountNumber, err)
				break
			}
		} else {
			result.Processed++
		}

		if opts.Progress != nil {
			fmt.Fprintf(opts.Progress, "estimate/processed/errors: %d/%d/%d    \r",
				result.Estimate, result.Processed, e.errs.Accounts())
		}

		if opts.Limit > 0 && result.Processed >= opts.Limit {
			break
		}
	}
	if opts.Progress != nil {
		fmt.Fprintln(opts.Progress)
	}

	result.ErrorAccounts = e.errs.Accounts()
	result.Groups = e.errs.Groups()

	e.logger.Info("Export finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("error_accounts", result.ErrorAccounts),
	)
	if len(result.Groups) > 0 {
		e.logger.Warn("Groups without mapping", zap.Strings("groups", result.Groups))
	}
	return result, fatal
}

func (e *ClientDataExporter) exportAccount(ctx context.Context, st *runState, accountNumber string) error {
	acc, err := e.src.GetAccount(ctx, accountNumber)
	if err != nil {
		return err
	}
	if acc == nil {
		e.errs.Error(accountNumber, "no such account")
		return nil
	}

	cats := st.opts.Categories
	if cats.Has(CategoryAccounts) {
		if err := e.writeAccount(acc); err != nil {
			return err
		}
	}
	if cats.Has(CategoryAttributes) {
		if err := e.writeAttributes(ctx, acc); err != nil {
			return err
		}
	}

	correction := decimal.Zero
	if cats.Has(CategoryConnections) {
		for _, kind := range e.connectionKinds() {
			c, err := e.exportConnections(ctx, st, acc, kind)
			if err != nil {
				return fmt.Errorf("%s connections: %w", kind, err)
			}
			correction = correction.Add(c)
		}
	}

	if cats.Has(CategoryBalances) {
		if err := e.writeBalance(st, acc, correction); err != nil {
			return err
		}
	}
	if cats.Has(CategoryPayments) {
		if err := e.writePayments(ctx, acc); err != nil {
			return err
		}
	}
	return nil
}

func (e *ClientDataExporter) connectionKinds() []string {
	if len(e.profile.ConnectionKinds) > 0 {
		return e.profile.ConnectionKinds
	}
	return config.DefaultConnectionKinds
}

func (e *ClientDataExporter) writeAccount(acc *models.Account) error {
	var gid any
	if id, ok := e.profile.GroupsMap[acc.GroupName]; ok {
		gid = id
	} else {
		e.errs.NoGroup(acc.AccountNumber, acc.GroupName)
	}

	taxName, creditName := "std", "unlimited"
	if acc.AccType == models.AccTypePerson {
		taxName, creditName = "person", "prepay"
	}
	tsid, err := e.maps.TaxSchema(taxName)
	if err != nil {
		return err
	}
	csid, err := e.maps.CreditSchema(creditName)
	if err != nil {
		return err
	}
	utid, err := e.maps.AccountType(acc.AccType)
	if err != nil {
		return err
	}

	return e.sinks.Accounts.Write(writer.Record{
		"ABONID":  acc.ID,
		"GID":     gid,
		"TSID":    tsid,
		"CSID":    csid,
		"DOGCODE": acc.AccountNumber,
		"DOGDATE": acc.CreateDate.Format(DateLayout),
		"UTID":    utid,
	})
}

// attrWriter stops at the first write error
type attrWriter struct {
	w   *writer.AttrsWriter
	id  int64
	err error
}

func (a *attrWriter) write(value any, name string, parent ...string) {
	if a.err != nil {
		return
	}
	var p string
	if len(parent) > 0 {
		p = parent[0]
	}
	a.err = a.w.WriteAttr(a.id, value, name, p)
}

func (e *ClientDataExporter) writeAttributes(ctx context.Context, acc *models.Account) error {
	aw := &attrWriter{w: e.sinks.Attrs, id: acc.ID}
	aw.write(acc.NotificationEmail, "notify-email")
	aw.write(DigitsOnly(acc.NotificationSMS), "notify-sms")
	aw.write(DigitsOnly(acc.NotificationFax), "notify-fax")
	aw.write(acc.Manager, "manager")
	if aw.err != nil {
		return aw.err
	}

	if acc.AccType == models.AccTypePerson {
		if err := e.writePersonInfo(ctx, acc.AccountNumber); err != nil {
			return err
		}
	} else {
		if err := e.writeCompanyInfo(ctx, acc.AccountNumber); err != nil {
			return err
		}
	}

	if err := e.writeContacts(ctx, acc.AccountNumber); err != nil {
		return err
	}
	return e.writeAddresses(ctx, acc.AccountNumber, acc.AccType)
}

func (e *ClientDataExporter) writePersonInfo(ctx context.Context, accountNumber string) error {
	p, err := e.src.GetPersonInfo(ctx, accountNumber)
	if err != nil {
		return err
	}
	if p == nil {
		e.errs.Error(accountNumber, "no person info")
		return nil
	}

	aw := &attrWriter{w: e.sinks.Attrs, id: p.ID}
	if p.BirthDay != nil {
		aw.write(p.BirthDay.Format(DateLayout), "birth-day")
	}
	aw.write(p.BirthPlace, "birth-place")
	aw.write(p.SecretWord, "secret")
	aw.write(p.FirstName, "first-name", "fullname")
	aw.write(p.LastName, "last-name", "fullname")
	aw.write(p.SecondName, "second-name", "fullname")
	aw.write(JoinNonEmpty(p.LastName, p.FirstName, p.SecondName), "name")

	var passportDate string
	if p.PassportDate != nil {
		passportDate = p.PassportDate.Format(DateLayout)
	}
	aw.write(JoinNonEmpty(p.PassportSeries, p.PassportNumber, passportDate, p.PassportIssuer), "passport")
	return aw.err
}

func (e *ClientDataExporter) writeCompanyInfo(ctx context.Context, accountNumber string) error {
	c, err := e.src.GetCompanyInfo(ctx, accountNumber)
	if err != nil {
		return err
	}
	if c == nil {
		e.errs.Error(accountNumber, "no company info")
		return nil
	}

	aw := &attrWriter{w: e.sinks.Attrs, id: c.ID}
	aw.write(c.CoName, "name")
	aw.write(c.LawName, "law-name")
	aw.write(c.INN, "inn")
	aw.write(c.KPP, "kpp")
	aw.write(c.OGRN, "ogrn")
	aw.write(c.OKONH, "okonh")
	aw.write(c.OKPO, "okpo")
	aw.write(c.EISUP, "eisup")
	return aw.err
}

func (e *ClientDataExporter) writeContacts(ctx context.Context, accountNumber string) error {
	contacts, err := e.src.ListContacts(ctx, accountNumber)
	if err != nil {
		return err
	}

	var (
		order     []string
		byType    = make(map[string][]string)
		accountID int64
	)
	for _, c := range contacts {
		accountID = c.ID
		if _, ok := byType[c.TypeName]; !ok {
			order = append(order, c.TypeName)
		}
		value := c.Info
		if c.TypeName != "extra-email" {
			value = DigitsOnly(value)
		}
		byType[c.TypeName] = append(byType[c.TypeName], value)
	}

	aw := &attrWriter{w: e.sinks.Attrs, id: accountID}
	for _, typeName := range order {
		aw.write(byType[typeName], typeName)
	}
	return aw.err
}

func (e *ClientDataExporter) writeAddresses(ctx context.Context, accountNumber, accType string) error {
	addresses, err := e.src.ListAddresses(ctx, accountNumber, accType)
	if err != nil {
		return err
	}
	for _, a := range addresses {
		block := a.Building
		if block == "" {
			block = a.Block
		}
		aw := &attrWriter{w: e.sinks.Attrs, id: a.ID}
		aw.write(a.Zip, "zip", a.AddressType)
		aw.write(a.State, "state", a.AddressType)
		aw.write(a.City, "city", a.AddressType)
		aw.write(a.Street, "street", a.AddressType)
		aw.write(a.Num, "house", a.AddressType)
		aw.write(block, "block", a.AddressType)
		aw.write(a.Flat, "flat", a.AddressType)
		if aw.err != nil {
			return aw.err
		}
	}
	return nil
}

func (e *ClientDataExporter) writeBalance(st *runState, acc *models.Account, correction decimal.Decimal) error {
	date := st.now.Format(TimestampLayout)
	payments := st.promised[acc.AccountNumber]
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, pp := range payments {
		amounts = append(amounts, pp.Amount)
		if err := e.sinks.PromisedPayments.Write(writer.Record{
			"ABONID":     acc.ID,
			"DOGCODE":    acc.AccountNumber,
			"CREDIT_SUM": pp.Amount,
			"ENDDATE":    pp.ExpireDate.Format(TimestampLayout),
			"DATE":       date,
		}); err != nil {
			return err
		}
	}

	return e.sinks.Balances.Write(writer.Record{
		"DATE":    acc.Now.Format(TimestampLayout),
		"DOGCODE": acc.AccountNumber,
		"BALANCE": Balance(acc.ChildBalance, amounts, correction),
	})
}

func (e *ClientDataExporter) writePayments(ctx context.Context, acc *models.Account) error {
	payments, err := e.src.ListPayments(ctx, acc.AccountNumber)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if err := e.sinks.Payments.Write(writer.Record{
			"DOGCODE": p.AccountNumber,
			"MDATE":   p.PaymentDate.Format(TimestampLayout),
			"SUM":     p.Sum,
		}); err != nil {
			return err
		}
	}
	return nil
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// DigitsOnly drops everything but digits from a phone-like value
func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// JoinNonEmpty joins the non blank parts with a space
func JoinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
