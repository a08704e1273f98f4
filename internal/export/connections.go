package export

import (
	"context"
	"fmt"
	"strings"

	"smart2onyma/internal/models"
	"smart2onyma/internal/repository"
	"smart2onyma/internal/writer"

	"github.com/shopspring/decimal"
)

const (
	remarkMaxLen = 250
	statusActive = "active"
	coefOne      = "1.0"
)

var sitenamePrefixes = map[string]string{
	repository.KindLK:       "lc",
	repository.KindInternet: "i",
	repository.KindPhone:    "tel",
	repository.KindCTV:      "tv",
	repository.KindNPL:      "npl",
}

// SiteName builds the connection site name; the ordinal suffix is added from the second connection on
func SiteName(kind, accountNumber string, idx int) (string, error) {
	prefix, ok := sitenamePrefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown connection kind %q", kind)
	}
	if idx > 0 {
		return fmt.Sprintf("%s%s_%d", prefix, accountNumber, idx), nil
	}
	return prefix + accountNumber, nil
}

// SanitizeRemark makes a description safe for the remark field
func SanitizeRemark(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, ";", ".")
	if r := []rune(s); len(r) > remarkMaxLen {
		s = string(r[:remarkMaxLen])
	}
	return s
}

// connCtx carries what the steps of one connection share
type connCtx struct {
	acc       *models.Account
	conn      models.Connection
	kind      string
	sitename  string
	usrconnid int64
	tariffID  int64
}

// exportConnections exports every connection of one kind and returns the balance correction
func (e *ClientDataExporter) exportConnections(ctx context.Context, st *runState, acc *models.Account, kind string) (decimal.Decimal, error) {
	correction := decimal.Zero

	conns, err := e.src.ListConnections(ctx, acc.AccountNumber, kind)
	if err != nil {
		return correction, err
	}

	for idx, conn := range conns {
		remark := SanitizeRemark(conn.Description)

		var tariffID, statusID int64
		if kind == repository.KindLK {
			tariffID = e.maps.Onyma.TechnologicalTariff
			id, ok := e.maps.Status(statusActive)
			if !ok {
				return correction, fmt.Errorf("no status id for %q", statusActive)
			}
			statusID = id
		} else {
			id, ok := e.profile.TariffsMap[conn.TariffID]
			if !ok {
				e.errs.Errorf(acc.AccountNumber, "no tariff map for %d", conn.TariffID)
				continue
			}
			tariffID = id
			if statusID, ok = e.maps.Status(conn.Status); !ok {
				e.errs.Errorf(acc.AccountNumber, "no status map for %q on connection %d", conn.Status, conn.ConnID)
				continue
			}
		}

		sitename, err := SiteName(kind, acc.AccountNumber, idx)
		if err != nil {
			return correction, err
		}
		cc := &connCtx{
			acc:       acc,
			conn:      conn,
			kind:      kind,
			sitename:  sitename,
			usrconnid: e.alloc.AllocateOrReuse(sitename),
			tariffID:  tariffID,
		}

		var (
			login      string
			resourceID int64
		)
		switch kind {
		case repository.KindLK:
			resourceID, err = e.maps.Resource("lk-access")
			if err == nil {
				err = e.writeLKProps(cc)
			}
		case repository.KindInternet:
			if conn.ConnType == models.ConnTypeIPoE {
				resourceID, err = e.maps.Resource("internet-connection-net")
			} else {
				login = conn.Login
				resourceID, err = e.maps.Resource("internet-connection")
			}
			if err == nil {
				err = e.writeInternetProps(cc)
			}
		case repository.KindPhone:
			resourceID, err = e.maps.Resource("phone-number")
			if err == nil {
				err = e.writePhoneProps(st, cc)
			}
		case repository.KindCTV:
			resourceID, err = e.maps.Resource("ctv-connection")
		case repository.KindNPL:
			resourceID, err = e.maps.Resource("internet-npl")
			if platforms := JoinDash(conn.Platform1, conn.Platform2); platforms != "" {
				remark = platforms
			}
		}
		if err != nil {
			return correction, err
		}

		if err := e.writeStatusHistory(ctx, st, cc, login); err != nil {
			return correction, err
		}

		if err := e.sinks.ConnNames.Write(writer.Record{
			"ABONID":   conn.AccountID,
			"DOMAINID": e.profile.DomainID,
			"SITENAME": sitename,
			"REMARK":   remark,
		}); err != nil {
			return correction, err
		}
		if err := e.sinks.ConnList.Write(writer.Record{
			"USRCONNID": cc.usrconnid,
			"ABONID":    conn.AccountID,
			"SITENAME":  sitename,
			"RESID":     resourceID,
			"TMID":      tariffID,
			"BEGDATE":   st.today.Format(DateLayout),
			"STATUS":    statusID,
			"SHARED":    0,
			// source connection id, kept for reconciliation
			"REMARK": conn.ConnID,
		}); err != nil {
			return correction, err
		}

		if kind == repository.KindInternet && e.profile.DaylyWriteOffFix && conn.Status == statusActive {
			correction = correction.Add(DailyWriteOffCorrection(conn.TariffFee, st.today))
		}

		if kind == repository.KindInternet {
			if err := e.writePeriodicServices(st, cc); err != nil {
				return correction, err
			}
		}
		if err := e.writeCreditServices(st, cc); err != nil {
			return correction, err
		}

		if st.opts.TariffsHistoryFrom != nil && kind != repository.KindLK {
			if err := e.writeTariffHistory(ctx, st, cc); err != nil {
				return correction, err
			}
		}

		if len(e.profile.DiscountsServiceMapping) > 0 {
			if err := e.writeDiscounts(ctx, cc); err != nil {
				return correction, err
			}
		}
	}
	return correction, nil
}

// JoinDash joins the non empty parts with " - "
func JoinDash(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " - ")
}

func (e *ClientDataExporter) writeLKProps(cc *connCtx) error {
	p := e.sinks.Props
	if err := p.WriteProp(cc.usrconnid, "lk-login", cc.conn.Login, nil); err != nil {
		return err
	}
	if err := p.WriteProp(cc.usrconnid, "lk-password", cc.conn.Password, nil); err != nil {
		return err
	}
	// the cabinet stores md5(md5(password))
	return p.WriteProp(cc.usrconnid, "cypher", "MD5MD5", nil)
}

func ipValue(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func (e *ClientDataExporter) writeInternetProps(cc *connCtx) error {
	p := e.sinks.Props
	conn := cc.conn
	accNum := cc.acc.AccountNumber
	start, end := ipValue(conn.StartIP), ipValue(conn.EndIP)

	switch conn.ConnType {
	case models.ConnTypePPPoE:
		if err := p.WriteProp(cc.usrconnid, "internet-login", conn.Login, nil); err != nil {
			return err
		}
		if err := p.WriteProp(cc.usrconnid, "internet-password", conn.Password, nil); err != nil {
			return err
		}
		if err := p.WriteProp(cc.usrconnid, "cypher", "PLAIN", nil); err != nil {
			return err
		}

		if start != end {
			e.errs.Errorf(accNum, "subnet %s - %s on pppoe connection %d", IntToAddr(start), IntToAddr(end), conn.ConnID)
			return nil
		}
		if start == 0 {
			resID, err := e.maps.Resource("dynamic-ip-addr")
			if err != nil {
				return err
			}
			return p.WriteResource(cc.usrconnid, resID)
		}

		resID, err := e.maps.Resource("static-ip-addr")
		if err != nil {
			return err
		}
		if err := p.WriteResource(cc.usrconnid, resID); err != nil {
			return err
		}
		addr := IntToAddr(start)
		pool, err := e.ipPools.FindAddr(addr)
		if err != nil {
			e.errs.Errorf(accNum, "no ip pool for %s", addr)
		}
		if err := p.WriteProp(cc.usrconnid, "static-ip-pool-name", pool, nil); err != nil {
			return err
		}
		return p.WriteProp(cc.usrconnid, "static-ip-addr", addr.String(), nil)

	case models.ConnTypeIPoE:
		var (
			network string
			pool    string
			err     error
		)
		if start == end {
			addr := IntToAddr(start)
			network = addr.String() + "/32"
			pool, err = e.ipPools.FindAddr(addr)
		} else {
			prefix, perr := TwoIPToNet(start, end)
			if perr != nil {
				return fmt.Errorf("connection %d: %w", conn.ConnID, perr)
			}
			network = prefix.String()
			pool, err = e.ipPools.FindNet(prefix)
		}
		if err != nil {
			e.errs.Errorf(accNum, "no ip pool for %s", network)
		}

		if err := p.WriteProp(cc.usrconnid, "netflow-collector", conn.Router, nil); err != nil {
			return err
		}
		if err := p.WriteProp(cc.usrconnid, "static-net-pool-name", pool, nil); err != nil {
			return err
		}
		return p.WriteProp(cc.usrconnid, "static-net", network, nil)

	default:
		e.errs.Errorf(accNum, "unexpected connection type %q on connection %d", conn.ConnType, conn.ConnID)
		return nil
	}
}

func (e *ClientDataExporter) writePhoneProps(st *runState, cc *connCtx) error {
	p := e.sinks.Props
	conn := cc.conn

	if err := p.WriteProp(cc.usrconnid, "phone-ats-name", conn.ATSName, nil); err != nil {
		return err
	}
	pool, err := st.phones.FindString(conn.PhoneNumber)
	if err != nil {
		e.errs.Errorf(cc.acc.AccountNumber, "no phone pool for %s", conn.PhoneNumber)
	} else {
		if err := p.WriteProp(cc.usrconnid, "phone-zone-code", pool.ZoneCode, nil); err != nil {
			return err
		}
		if err := p.WriteProp(cc.usrconnid, "phone-series", PhoneSeries(pool), nil); err != nil {
			return err
		}
	}
	return p.WriteProp(cc.usrconnid, "phone-number", conn.PhoneNumber, nil)
}

func (e *ClientDataExporter) writeStatusHistory(ctx context.Context, st *runState, cc *connCtx, login string) error {
	entries, err := e.src.ListConnectionStatuses(ctx, cc.conn.ConnID)
	if err != nil {
		return err
	}

	loc := e.profile.Location()
	for _, h := range ReconstructStatusHistory(entries, PeriodStart(st.today, loc)) {
		if h.Status == "" {
			continue
		}
		statusID, ok := e.maps.Status(h.Status)
		if !ok {
			e.errs.Errorf(cc.acc.AccountNumber, "no status map for %q in history of connection %d", h.Status, cc.conn.ConnID)
			continue
		}
		if err := e.sinks.StatusHistory.Write(writer.Record{
			"USRCONNID": cc.usrconnid,
			"LOGIN":     login,
			"MDATE":     h.StartDate.In(loc).Format(TimestampLayout),
			"STATUS":    statusID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *ClientDataExporter) writePeriodicServices(st *runState, cc *connCtx) error {
	for _, srv := range st.periodic[cc.conn.ConnID] {
		servID, ok := e.profile.PeriodicServiceMapping[srv.ID]
		if !ok {
			e.errs.Errorf(cc.acc.AccountNumber, "no mapping for service id %d (%q)", srv.ID, srv.Name)
			continue
		}
		cost := srv.CountPrice.Decimal
		if srv.Price.Valid && !srv.Price.Decimal.IsZero() {
			cost = srv.Price.Decimal
		}
		if err := e.sinks.TariffsPersonal.Write(writer.Record{
			"TMID":       cc.tariffID,
			"ABONID":     cc.conn.AccountID,
			"SITENAME":   cc.sitename,
			"SERVID":     servID,
			"COST":       WithVAT(cost),
			"COEF":       srv.Amount.String(),
			"CCNTR":      coefOne,
			"MDATE":      srv.StatusDate.Format(TimestampLayout),
			"USRCONNID":  cc.usrconnid,
			"SERV_ALIAS": srv.Name,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *ClientDataExporter) writeCreditServices(st *runState, cc *connCtx) error {
	for _, item := range st.credits[cc.conn.ConnID] {
		servID, ok := e.profile.CreditServiceMapping[item.TypeID]
		if !ok {
			e.errs.Errorf(cc.acc.AccountNumber, "no mapping for credit service id %d (%q)", item.TypeID, item.Name)
			continue
		}
		// monthly payments already include VAT
		if err := e.sinks.TariffsPersonal.Write(writer.Record{
			"TMID":       cc.tariffID,
			"ABONID":     cc.conn.AccountID,
			"SITENAME":   cc.sitename,
			"SERVID":     servID,
			"COST":       item.CreditMonthlyPayment,
			"COEF":       coefOne,
			"CCNTR":      coefOne,
			"MDATE":      item.StartDate.Format(TimestampLayout),
			"USRCONNID":  cc.usrconnid,
			"SERV_ALIAS": item.Name,
			"ENDDATE":    item.EndDate.Format(TimestampLayout),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *ClientDataExporter) writeTariffHistory(ctx context.Context, st *runState, cc *connCtx) error {
	changes, err := e.src.ListTariffHistory(ctx, cc.conn.ConnID, *st.opts.TariffsHistoryFrom)
	if err != nil {
		return err
	}
	date := st.now.Format(DateTimeLayout)
	for _, ch := range changes {
		tariffID, ok := e.profile.TariffsMap[ch.TariffID]
		if !ok {
			e.errs.Errorf(cc.acc.AccountNumber, "no tariff map for %d", ch.TariffID)
			continue
		}
		if err := e.sinks.TariffsHistory.Write(writer.Record{
			"TMID":       tariffID,
			"DATE_START": ch.StartDate.Format(DateTimeLayout),
			"USRCONNID":  cc.usrconnid,
			"DATE":       date,
			"SITENAME":   cc.sitename,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *ClientDataExporter) writeDiscounts(ctx context.Context, cc *connCtx) error {
	discounts, err := e.src.ListDiscounts(ctx, cc.conn.ConnID)
	if err != nil {
		return err
	}
	for _, d := range discounts {
		servID, ok := e.profile.DiscountsServiceMapping[d.DiscountID]
		if !ok {
			e.errs.Errorf(cc.acc.AccountNumber, "no discount map for %d", d.DiscountID)
			continue
		}
		if err := e.sinks.TariffsPersonal.Write(writer.Record{
			"TMID":      cc.tariffID,
			"ABONID":    cc.conn.AccountID,
			"SITENAME":  cc.sitename,
			"SERVID":    servID,
			"COST":      0,
			"COEF":      coefOne,
			"CCNTR":     coefOne,
			"MDATE":     d.StartDate.Format(TimestampLayout),
			"USRCONNID": cc.usrconnid,
			"REMARK":    d.Description,
		}); err != nil {
			return err
		}
	}
	return nil
}
