package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	commoncfg "smart2onyma/common/config"
	"smart2onyma/common/database"
	rediscommon "smart2onyma/common/redis"
	"smart2onyma/internal/config"
	"smart2onyma/internal/export"
	"smart2onyma/internal/mapping"
	"smart2onyma/internal/repository"
	"smart2onyma/internal/writer"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// clientDataFiles are the outputs of one client data run
var clientDataFiles = []string{
	mapping.FileAccountsList,
	mapping.FileAccountsAttrs,
	mapping.FileConnectionsNames,
	mapping.FileConnectionsList,
	mapping.FileConnectionsHistory,
	mapping.FileConnectionsProps,
	mapping.FileTariffsPersonal,
	mapping.FileTariffsHistory,
	mapping.FilePromisedPayments,
	mapping.FileBalancesList,
	mapping.FilePaymentsList,
}

// DBOpener opens the source billing database of a profile
type DBOpener func(ctx context.Context, cfg *commoncfg.DatabaseConfig) (*sql.DB, error)

// ExporterService runs the export commands over one or more profiles
type ExporterService struct {
	config      *config.Config
	logger      *zap.Logger
	maps        *mapping.Maps
	redisClient *redis.Client
	store       export.AllocationStore
	openDB      DBOpener
	clock       func() time.Time
}

// NewExporterService loads the mapping tables and connects to Redis when configured
func NewExporterService(cfg *config.Config, logger *zap.Logger) (*ExporterService, error) {
	var (
		maps *mapping.Maps
		err  error
	)
	if cfg.Export.MapsFile != "" {
		maps, err = mapping.Load(cfg.Export.MapsFile)
	} else {
		maps, err = mapping.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping tables: %w", err)
	}

	s := &ExporterService{
		config: cfg,
		logger: logger,
		maps:   maps,
		openDB: database.NewDB,
		clock:  time.Now,
	}

	if cfg.Redis.Enabled() {
		client, err := rediscommon.Connect(context.Background(), &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redisClient = client
		s.store = export.NewRedisAllocationStore(client, cfg.Export.UsrconnidKey)
		logger.Info("Usrconnid store enabled",
			zap.String("redis_addr", cfg.Redis.Addr),
			zap.String("key", cfg.Export.UsrconnidKey),
		)
	}

	return s, nil
}

// Maps returns the mapping tables in use
func (s *ExporterService) Maps() *mapping.Maps {
	return s.maps
}

// profileRun is one opened profile: its database, repository and output directory
type profileRun struct {
	path     string
	profile  *config.Profile
	db       *sql.DB
	repo     *repository.SmartRepository
	exporter *writer.Exporter
}

func (s *ExporterService) openProfile(ctx context.Context, path string) (*profileRun, error) {
	profile, err := config.LoadProfile(path)
	if err != nil {
		return nil, err
	}

	db, err := s.openDB(ctx, &commoncfg.DatabaseConfig{
		Dialect: profile.SQLDialect,
		URI:     profile.ConnectionURI,
	})
	if err != nil {
		return nil, fmt.Errorf("profile %s: failed to connect to database: %w", path, err)
	}

	engine, err := repository.NewEngine(db, profile.SQLDialect, repository.TemplatesFS(profile.SQLTemplatesDir), s.logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	for name, params := range profile.FilterParams() {
		engine.AddFilter(name, params)
	}

	exp, err := writer.NewExporter(profile.ExportDataDir, s.maps, s.logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("Profile loaded",
		zap.String("profile", path),
		zap.String("dialect", profile.SQLDialect),
		zap.String("export_dir", profile.ExportDataDir),
	)
	return &profileRun{
		path:     path,
		profile:  profile,
		db:       db,
		repo:     repository.NewSmartRepository(engine, s.logger),
		exporter: exp,
	}, nil
}

func (r *profileRun) close(logger *zap.Logger) {
	if err := database.Close(r.db); err != nil {
		logger.Error("Error closing database connection", zap.String("profile", r.path), zap.Error(err))
	}
}

// OutputOptions control truncation of the export files
type OutputOptions struct {
	// Append keeps existing output; otherwise files are truncated before the first profile
	Append bool
	// Header writes the header row into truncated files
	Header bool
}

// forEachProfile opens every profile in turn, truncating outputs only before the first one
func (s *ExporterService) forEachProfile(ctx context.Context, profiles []string, out OutputOptions, fn func(*profileRun) error) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no profile given")
	}
	appendMode := out.Append
	for _, path := range profiles {
		run, err := s.openProfile(ctx, path)
		if err != nil {
			return err
		}
		if !appendMode {
			if err := run.exporter.Clear(out.Header); err != nil {
				run.close(s.logger)
				return err
			}
		}
		err = fn(run)
		run.close(s.logger)
		if err != nil {
			return fmt.Errorf("profile %s: %w", path, err)
		}
		appendMode = true
	}
	return nil
}

// ClientDataOptions tune the clientdata command
type ClientDataOptions struct {
	OutputOptions
	Accounts []string
	Skip     []string
	// Limit overrides the profile limit when positive
	Limit              int
	Items              []string
	TariffsHistoryFrom *time.Time
	// ImportConnections is a prior connections list seeding usrconnid values
	ImportConnections string
	// OnError overrides the profile on-error mode when set
	OnError  string
	Progress io.Writer
}

// ClientData exports accounts, connections, balances and payments of every profile
func (s *ExporterService) ClientData(ctx context.Context, profiles []string, opts ClientDataOptions) error {
	categories, err := export.ParseCategories(opts.Items)
	if err != nil {
		return err
	}

	alloc, err := s.newAllocator(ctx, opts.ImportConnections)
	if err != nil {
		return err
	}

	errLog, err := os.Create(s.config.Export.ErrorsLog)
	if err != nil {
		return fmt.Errorf("failed to create errors log: %w", err)
	}
	defer errLog.Close()

	return s.forEachProfile(ctx, profiles, opts.OutputOptions, func(run *profileRun) error {
		mode := opts.OnError
		if mode == "" {
			mode = run.profile.OnError
		}
		failMode, err := export.ParseFailMode(mode)
		if err != nil {
			return err
		}
		limit := run.profile.Limit
		if opts.Limit > 0 {
			limit = opts.Limit
		}

		files, err := run.exporter.OpenAll(clientDataFiles...)
		if err != nil {
			return err
		}
		sinks := export.ClientDataSinks{
			Accounts:         files.Get(mapping.FileAccountsList).Writer,
			Attrs:            writer.NewAttrsWriter(files.Get(mapping.FileAccountsAttrs).Writer, s.maps),
			ConnNames:        files.Get(mapping.FileConnectionsNames).Writer,
			ConnList:         files.Get(mapping.FileConnectionsList).Writer,
			StatusHistory:    files.Get(mapping.FileConnectionsHistory).Writer,
			Props:            writer.NewPropsWriter(files.Get(mapping.FileConnectionsProps).Writer, s.maps),
			TariffsPersonal:  files.Get(mapping.FileTariffsPersonal).Writer,
			TariffsHistory:   files.Get(mapping.FileTariffsHistory).Writer,
			PromisedPayments: files.Get(mapping.FilePromisedPayments).Writer,
			Balances:         files.Get(mapping.FileBalancesList).Writer,
			Payments:         files.Get(mapping.FilePaymentsList).Writer,
		}

		errs := export.NewErrorsCounter(errLog, s.logger)
		exporter, err := export.NewClientDataExporter(run.repo, run.profile, s.maps, alloc, errs, sinks, s.logger)
		if err != nil {
			files.Close()
			return err
		}

		_, runErr := exporter.Run(ctx, export.Options{
			Accounts:           opts.Accounts,
			Skip:               opts.Skip,
			Limit:              limit,
			Categories:         categories,
			TariffsHistoryFrom: opts.TariffsHistoryFrom,
			FailMode:           failMode,
			Progress:           opts.Progress,
			Clock:              s.clock,
		})

		// rows already written reference the fresh ids, keep them even after a failure
		closeErr := files.Close()
		saveErr := s.saveAllocations(ctx, alloc)
		if runErr != nil {
			return runErr
		}
		if closeErr != nil {
			return closeErr
		}
		return saveErr
	})
}

// newAllocator seeds usrconnid values from Redis, then from the imported connections list
func (s *ExporterService) newAllocator(ctx context.Context, importPath string) (*export.Allocator, error) {
	alloc := export.NewAllocator(nil)

	if s.store != nil {
		seed, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		alloc.Seed(seed)
		s.logger.Info("Usrconnid values loaded from redis", zap.Int("count", len(seed)))
	}

	if importPath != "" {
		f, err := s.maps.ExportFile(mapping.FileConnectionsList)
		if err != nil {
			return nil, err
		}
		seed, err := writer.ReadSiteNameMap(importPath, f.Format)
		if err != nil {
			return nil, err
		}
		alloc.Seed(seed)
		s.logger.Info("Usrconnid values imported",
			zap.String("file", importPath),
			zap.Int("count", len(seed)),
		)
	}

	s.logger.Info("Usrconnid allocator ready", zap.Int64("next", alloc.Next()))
	return alloc, nil
}

func (s *ExporterService) saveAllocations(ctx context.Context, alloc *export.Allocator) error {
	if s.store == nil {
		return nil
	}
	fresh := alloc.Fresh()
	if err := s.store.Save(ctx, fresh); err != nil {
		return err
	}
	s.logger.Info("Usrconnid values saved to redis", zap.Int("count", len(fresh)))
	return nil
}

func (s *ExporterService) catalog(run *profileRun) *export.CatalogExporter {
	return export.NewCatalogExporter(run.repo, run.profile, s.maps, s.logger, s.clock)
}

// Tariffs exports the tariff catalogue with prices and policies
func (s *ExporterService) Tariffs(ctx context.Context, profiles []string, out OutputOptions) error {
	return s.forEachProfile(ctx, profiles, out, func(run *profileRun) error {
		files, err := run.exporter.OpenAll(mapping.FileTariffsList, mapping.FileTariffsPolicy, mapping.FileTariffsPrices)
		if err != nil {
			return err
		}
		err = s.catalog(run).ExportTariffs(ctx, export.TariffSinks{
			List:   files.Get(mapping.FileTariffsList).Writer,
			Policy: files.Get(mapping.FileTariffsPolicy).Writer,
			Prices: files.Get(mapping.FileTariffsPrices).Writer,
		})
		if closeErr := files.Close(); err == nil {
			err = closeErr
		}
		return err
	})
}

// TariffsSrvCredit exports one tariff per service type sold on credit
func (s *ExporterService) TariffsSrvCredit(ctx context.Context, profiles []string, out OutputOptions) error {
	return s.forEachProfile(ctx, profiles, out, func(run *profileRun) error {
		files, err := run.exporter.OpenAll(mapping.FileTariffsList)
		if err != nil {
			return err
		}
		err = s.catalog(run).ExportCreditServiceTariffs(ctx, files.Get(mapping.FileTariffsList).Writer)
		if closeErr := files.Close(); err == nil {
			err = closeErr
		}
		return err
	})
}

// Policy exports RADIUS policies as connections of the base account
func (s *ExporterService) Policy(ctx context.Context, profiles []string, out OutputOptions) error {
	return s.forEachProfile(ctx, profiles, out, func(run *profileRun) error {
		files, err := run.exporter.OpenAll(mapping.FileConnectionsList, mapping.FileConnectionsProps)
		if err != nil {
			return err
		}
		err = s.catalog(run).ExportPolicies(ctx,
			files.Get(mapping.FileConnectionsList).Writer,
			writer.NewPropsWriter(files.Get(mapping.FileConnectionsProps).Writer, s.maps),
		)
		if closeErr := files.Close(); err == nil {
			err = closeErr
		}
		return err
	})
}

// BaseCompanies prints base companies of the profile database, optionally saving them to xlsxPath
func (s *ExporterService) BaseCompanies(ctx context.Context, profilePath string, w io.Writer, xlsxPath string) error {
	run, err := s.openProfile(ctx, profilePath)
	if err != nil {
		return err
	}
	defer run.close(s.logger)

	companies, err := s.catalog(run).ListBaseCompanies(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteBaseCompanies(w, companies); err != nil {
		return err
	}
	if xlsxPath != "" {
		if err := export.WriteBaseCompaniesXLSX(xlsxPath, companies); err != nil {
			return err
		}
		s.logger.Info("Base companies saved", zap.String("file", xlsxPath), zap.Int("count", len(companies)))
	}
	return nil
}

// Stop releases the Redis connection
func (s *ExporterService) Stop() error {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing redis connection", zap.Error(err))
			return err
		}
	}
	return nil
}
