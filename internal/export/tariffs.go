package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"smart2onyma/internal/config"
	"smart2onyma/internal/mapping"
	"smart2onyma/internal/models"
	"smart2onyma/internal/repository"
	"smart2onyma/internal/writer"

	"go.uber.org/zap"
)

// policyMarker is stripped from tariff policy values before mapping
const policyMarker = "ssg-account-info=A"

// TariffSinks are the output streams of the tariff export
type TariffSinks struct {
	List   *writer.Writer
	Policy *writer.Writer
	Prices *writer.Writer
}

// CatalogExporter exports tariffs, credit service tariffs and RADIUS policies
type CatalogExporter struct {
	src     CatalogSource
	profile *config.Profile
	maps    *mapping.Maps
	logger  *zap.Logger
	clock   func() time.Time
}

// NewCatalogExporter creates the exporter; clock defaults to time.Now when nil
func NewCatalogExporter(src CatalogSource, profile *config.Profile, maps *mapping.Maps, logger *zap.Logger, clock func() time.Time) *CatalogExporter {
	if clock == nil {
		clock = time.Now
	}
	return &CatalogExporter{
		src:     src,
		profile: profile,
		maps:    maps,
		logger:  logger,
		clock:   clock,
	}
}

type tariffGroup struct {
	group    string
	template string
	service  string
}

// ExportTariffs writes internet tariffs with their policies, then phone, ctv and npl tariffs
func (e *CatalogExporter) ExportTariffs(ctx context.Context, sinks TariffSinks) error {
	adslRE, err := regexp.Compile("^(?:" + e.profile.TariffsADSLMatchRE + ")")
	if err != nil {
		return fmt.Errorf("bad tariffs-adsl-match-re: %w", err)
	}

	e.logger.Info("Loading internet tariffs")
	tariffs, err := e.src.ListTariffs(ctx, repository.TariffsInternet)
	if err != nil {
		return fmt.Errorf("failed to load internet tariffs: %w", err)
	}
	for _, t := range tariffs {
		template := "internet-person"
		if t.ForCompany {
			template = "internet-company"
		}
		service := "fee-internet"
		if adslRE.MatchString(t.Name) {
			service = "fee-internet-adsl"
		}
		if err := e.writeTariff(sinks, t, template, service); err != nil {
			return err
		}
		if e.profile.TariffsPolicyMap != nil {
			if err := e.writeTariffPolicies(ctx, sinks.Policy, t); err != nil {
				return err
			}
		}
	}

	for _, g := range []tariffGroup{
		{repository.TariffsPhone, "phone", "fee-phone-number"},
		{repository.TariffsCTV, "ctv", "fee-ctv"},
		{repository.TariffsNPL, "npl", "fee-channel"},
	} {
		e.logger.Info("Loading tariffs", zap.String("group", g.group))
		tariffs, err := e.src.ListTariffs(ctx, g.group)
		if err != nil {
			return fmt.Errorf("failed to load %s tariffs: %w", g.group, err)
		}
		for _, t := range tariffs {
			if err := e.writeTariff(sinks, t, g.template, g.service); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *CatalogExporter) writeTariff(sinks TariffSinks, t models.Tariff, template, service string) error {
	tmid, err := e.profile.TariffTemplate(template)
	if err != nil {
		return err
	}
	servID, err := e.maps.Service(service)
	if err != nil {
		return err
	}

	var endDate string
	if t.Status == models.ArchivedTariffStatus {
		endDate = t.ModifyDate.Format(DateLayout)
	}
	start := t.CreateDate.Format(DateLayout)

	if err := sinks.List.Write(writer.Record{
		"START_DATE": start,
		"OLD_TMID":   t.ID,
		"TMID":       tmid,
		"NAME":       t.Name,
		"COMMENTARY": t.Cnt,
		"PERIOD":     t.Period,
		"NEXT_TMID":  t.NextTariffID,
		"END_DATE":   endDate,
	}); err != nil {
		return err
	}
	return sinks.Prices.Write(writer.Record{
		"START_DATE": start,
		"OLD_TMID":   t.ID,
		"NAME":       t.Name,
		"TMID":       "",
		"SERVID":     servID,
		"PRICE":      WithVAT(t.Fee.Decimal),
	})
}

func (e *CatalogExporter) writeTariffPolicies(ctx context.Context, w *writer.Writer, t models.Tariff) error {
	values, err := e.src.ListTariffPolicies(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to load policies of tariff %d: %w", t.ID, err)
	}
	for _, v := range values {
		name := strings.ReplaceAll(v, policyMarker, "")
		polID, ok := e.profile.TariffsPolicyMap[name]
		if !ok {
			e.logger.Warn("No mapping for policy", zap.String("policy", name), zap.Int64("tariff_id", t.ID))
		}
		if err := w.Write(writer.Record{
			"START_DATE": t.CreateDate.Format(DateLayout),
			"OLD_TMID":   t.ID,
			"NAME":       t.Name,
			"TMID":       "",
			"POLID":      polID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ExportCreditServiceTariffs writes one tariff per service type sold on credit
func (e *CatalogExporter) ExportCreditServiceTariffs(ctx context.Context, w *writer.Writer) error {
	types, err := e.src.ListCreditServiceTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credit service types: %w", err)
	}
	tmid, err := e.profile.TariffTemplate("service-credit")
	if err != nil {
		return err
	}
	start := e.clock().Format(DateLayout)
	for _, t := range types {
		if err := w.Write(writer.Record{
			"START_DATE": start,
			"OLD_TMID":   t.ID,
			"TMID":       tmid,
			"NAME":       t.SvcName,
		}); err != nil {
			return err
		}
	}
	return nil
}

type policy struct {
	id         int64
	name       string
	attributes []string
	values     map[string][]string
}

// ExportPolicies writes every RADIUS policy as a connection of the base account
func (e *CatalogExporter) ExportPolicies(ctx context.Context, connList *writer.Writer, props *writer.PropsWriter) error {
	items, err := e.src.ListPolicyItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load policy items: %w", err)
	}

	var order []*policy
	byID := make(map[int64]*policy)
	for _, it := range items {
		p, ok := byID[it.ID]
		if !ok {
			p = &policy{id: it.ID, name: it.Name, values: make(map[string][]string)}
			byID[it.ID] = p
			order = append(order, p)
		}
		if _, seen := p.values[it.Attribute]; !seen {
			p.attributes = append(p.attributes, it.Attribute)
		}
		p.values[it.Attribute] = append(p.values[it.Attribute], it.Value)
	}

	resID, err := e.maps.Resource("internet-policy")
	if err != nil {
		return err
	}
	statusID, ok := e.maps.Status(statusActive)
	if !ok {
		return fmt.Errorf("no status id for %q", statusActive)
	}
	start := e.clock().Format(DateLayout)

	for _, p := range order {
		if err := connList.Write(writer.Record{
			"USRCONNID": p.id,
			"ABONID":    e.profile.BaseAccountID,
			"SITENAME":  e.profile.BaseAccountSitename,
			"RESID":     resID,
			"TMID":      e.maps.Onyma.TechnologicalTariff,
			"BEGDATE":   start,
			"STATUS":    statusID,
			"SHARED":    0,
		}); err != nil {
			return err
		}
		if err := props.WriteProp(p.id, "policy-CoA-type", "HIGH", nil); err != nil {
			return err
		}
		if err := props.WriteProp(p.id, "policy-name", p.name, nil); err != nil {
			return err
		}
		for _, attr := range p.attributes {
			for idx, val := range p.values[attr] {
				if err := props.WriteProp(p.id, attr, val, idx+1); err != nil {
					return err
				}
			}
		}
	}
	e.logger.Info("Policies exported", zap.Int("count", len(order)))
	return nil
}
