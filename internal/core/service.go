package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/jobs"
	"github.com/DonovanMods/lmm-collections/internal/library"
	"github.com/DonovanMods/lmm-collections/internal/metrics"
	"github.com/DonovanMods/lmm-collections/internal/osinterop"
	"github.com/DonovanMods/lmm-collections/internal/source/nexusmods"
	"github.com/DonovanMods/lmm-collections/internal/storage/config"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"
	"github.com/DonovanMods/lmm-collections/internal/storage/downloads"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// NexusSourceID keys the stored NexusMods API key
const NexusSourceID = "nexusmods"

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir string // Directory for configuration files
	DataDir   string // Directory for the database; config.yaml's data_dir wins when set

	// Optional collaborators. Zero values get production defaults.
	Logger     *zerolog.Logger
	Registerer prometheus.Registerer
	HTTPClient *http.Client
	Fs         afero.Fs
	Opener     collections.Opener
}

// Service wires the store, library, catalog and collection downloader together
type Service struct {
	config      *config.Config
	db          *db.DB
	fs          afero.Fs
	httpClient  *http.Client
	catalog     *nexusmods.Catalog
	library     *library.Service
	collections *collections.Downloader
	runner      *jobs.Runner
	extractor   *Extractor
	logger      zerolog.Logger

	configDir string
	dataDir   string
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dataDir := cfg.DataDir
	if appConfig.DataDir != "" {
		dataDir = appConfig.DataDir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	database, err := db.New(filepath.Join(dataDir, "lmm.db"), db.WithLogger(logger.With().Str("component", "db").Logger()))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	apiKey, err := resolveAPIKey(context.Background(), appConfig, database)
	if err != nil {
		database.Close()
		return nil, err
	}

	client := nexusmods.NewClient(cfg.HTTPClient, apiKey)
	catalog := nexusmods.NewCatalog(client)
	lib := library.New(database, fsys, library.WithLogger(logger.With().Str("component", "library").Logger()))
	runner := jobs.NewRunner(jobs.WithLogger(logger.With().Str("component", "jobs").Logger()))

	opener := cfg.Opener
	if opener == nil {
		opener = osinterop.New(osinterop.WithLogger(logger))
	}

	var m *metrics.Metrics
	if cfg.Registerer != nil {
		m = metrics.New(cfg.Registerer)
	}

	downloader := collections.New(
		database,
		lib,
		downloads.New(fsys, appConfig.DownloadsPath),
		NewDownloader(cfg.HTTPClient, fsys),
		catalog,
		opener,
		collections.WithLogger(logger.With().Str("component", "collections").Logger()),
		collections.WithRunner(runner),
		collections.WithMetrics(m),
		collections.WithMaxParallel(appConfig.MaxParallelDownloads),
	)

	return &Service{
		config:      appConfig,
		db:          database,
		fs:          fsys,
		httpClient:  cfg.HTTPClient,
		catalog:     catalog,
		library:     lib,
		collections: downloader,
		runner:      runner,
		extractor:   NewExtractor(fsys),
		logger:      logger,
		configDir:   cfg.ConfigDir,
		dataDir:     dataDir,
	}, nil
}

// resolveAPIKey prefers the environment (or .env) over the stored key
func resolveAPIKey(ctx context.Context, cfg *config.Config, database *db.DB) (string, error) {
	if cfg.NexusAPIKey != "" {
		return cfg.NexusAPIKey, nil
	}
	token, err := database.GetToken(ctx, NexusSourceID)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", nil
	}
	return token.APIKey, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the loaded application configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}

// DataDir returns the directory holding the database
func (s *Service) DataDir() string {
	return s.dataDir
}

// DB returns the store
func (s *Service) DB() *db.DB {
	return s.db
}

// Collections returns the collection downloader
func (s *Service) Collections() *collections.Downloader {
	return s.collections
}

// Jobs returns the runner background downloads execute on
func (s *Service) Jobs() *jobs.Runner {
	return s.runner
}

// UserInfo returns the signed-in NexusMods account, or nil
func (s *Service) UserInfo(ctx context.Context) (*domain.UserInfo, error) {
	return s.catalog.UserInfo(ctx)
}

// Login validates the key against NexusMods and stores it
func (s *Service) Login(ctx context.Context, apiKey string) (*domain.UserInfo, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("empty API key: %w", domain.ErrAuthRequired)
	}

	probe := nexusmods.NewCatalog(nexusmods.NewClient(s.httpClient, apiKey))
	user, err := probe.UserInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("validating API key: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("API key rejected: %w", domain.ErrAuthRequired)
	}

	if err := s.db.SaveToken(ctx, NexusSourceID, apiKey); err != nil {
		return nil, err
	}
	s.catalog.SetAPIKey(apiKey)
	s.logger.Info().Str("user", user.Name).Bool("premium", user.IsPremium).Msg("logged in to NexusMods")
	return user, nil
}

// Logout removes the stored API key. A key set in the environment still
// applies on the next start.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.db.DeleteToken(ctx, NexusSourceID); err != nil {
		return err
	}
	s.catalog.SetAPIKey("")
	return nil
}

// LoadManifest reads a collection manifest from a collection.json file or
// from a collection archive containing one
func (s *Service) LoadManifest(ctx context.Context, path string) (*collections.Manifest, error) {
	if s.extractor.CanExtract(path) {
		data, err := s.extractor.ReadFile(ctx, path, ManifestName)
		if err != nil {
			return nil, err
		}
		return collections.ParseManifest(bytes.NewReader(data))
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	return collections.ParseManifest(f)
}

// ImportCollection stores a revision from a manifest file or archive. An
// empty slug is derived from the collection name.
func (s *Service) ImportCollection(ctx context.Context, path, slug string, revision int) (*domain.CollectionRevision, error) {
	if revision < 1 {
		return nil, fmt.Errorf("revision number must be positive, got %d", revision)
	}
	m, err := s.LoadManifest(ctx, path)
	if err != nil {
		return nil, err
	}
	if slug == "" {
		slug = Slugify(m.Info.Name)
	}
	return s.collections.GetOrAddRevision(ctx, slug, revision, m)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a name and joins its words with dashes
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Revision finds a stored revision. A zero number means the newest one.
func (s *Service) Revision(ctx context.Context, slug string, number int) (*domain.CollectionRevision, error) {
	if number > 0 {
		return s.db.RevisionByNumber(ctx, slug, number)
	}

	c, err := s.db.CollectionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	revisions, err := s.db.Revisions(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("%s has no revisions: %w", slug, domain.ErrRevisionNotFound)
	}
	return &revisions[len(revisions)-1], nil
}

// Loadout finds a loadout by name, falling back to the configured default.
// It returns nil when neither is set.
func (s *Service) Loadout(ctx context.Context, name string) (*domain.Loadout, error) {
	if name == "" {
		name = s.config.DefaultLoadout
	}
	if name == "" {
		return nil, nil
	}

	loadouts, err := s.db.Loadouts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range loadouts {
		if strings.EqualFold(loadouts[i].Name, name) {
			return &loadouts[i], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, domain.ErrLoadoutNotFound)
}

// Group returns the revision's group in the named loadout, or nil
func (s *Service) Group(ctx context.Context, revisionID int64, loadoutName string) (*domain.CollectionGroup, error) {
	loadout, err := s.Loadout(ctx, loadoutName)
	if err != nil || loadout == nil {
		return nil, err
	}
	return s.collections.GetCollectionGroup(ctx, revisionID, loadout.ID)
}

// IsNotFound reports whether err means a collection, revision or loadout is unknown
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrCollectionNotFound) ||
		errors.Is(err, domain.ErrRevisionNotFound) ||
		errors.Is(err, domain.ErrLoadoutNotFound)
}
