// Package audit assembles the registry, proposal engine and ledger into the
// service used by the HTTP adapter and the command line.
package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/consensus/bft"
	"github.com/tos-network/gaudit/core"
	"github.com/tos-network/gaudit/core/chainfile"
	"github.com/tos-network/gaudit/core/types"
	"github.com/tos-network/gaudit/log"
	"github.com/tos-network/gaudit/tosdb"
	"github.com/tos-network/gaudit/tosdb/leveldb"
	"github.com/tos-network/gaudit/tosdb/memorydb"
	"github.com/tos-network/gaudit/validator"
)

var (
	ErrUnauthenticated = errors.New("audit: unknown user")
	ErrForbidden       = errors.New("audit: operation not allowed for role")
	ErrInvalidIntake   = errors.New("audit: incomplete intake")
)

// auditLogTable prefixes the rejected block entries in a shared database.
const auditLogTable = "r"

// Service is the audit ledger of one process.
type Service struct {
	config   Config
	registry *validator.Registry
	chain    *core.BlockChain
	auditLog *core.AuditLog
	engine   *bft.Engine
	users    map[string]string

	log log.Logger
	now func() time.Time
}

// New creates the service described by config. Metrics are registered on reg
// when it is non-nil.
func New(config Config, reg prometheus.Registerer) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	registry, err := validator.Setup(config.ValidatorConfig())
	if err != nil {
		return nil, err
	}
	chainStore, logStore, err := openStores(&config)
	if err != nil {
		return nil, err
	}
	chain, err := core.NewBlockChain(chainStore, reg)
	if err != nil {
		closeStore(chainStore)
		return nil, err
	}
	s := &Service{
		config:   config,
		registry: registry,
		chain:    chain,
		users:    make(map[string]string, len(config.Users)),
		log:      log.New("module", "audit"),
		now:      time.Now,
	}
	var rejects bft.BlockSink
	if config.RejectMode == RejectToAuditLog {
		if s.auditLog, err = core.NewAuditLog(logStore, reg); err != nil {
			chain.Close()
			return nil, err
		}
		rejects = s.auditLog
	}
	if s.engine, err = bft.NewEngine(registry, chain, rejects, reg); err != nil {
		s.Close()
		return nil, err
	}
	users := config.Users
	if len(users) == 0 {
		users = DefaultUsers(config.Validators)
	}
	for _, u := range users {
		s.users[u.Name] = u.Role
	}
	s.log.Info("Audit service started", "store", config.Store, "blocks", chain.Len(), "validators", registry.Size(), "quorum", registry.Threshold(), "rejects", config.RejectMode)
	return s, nil
}

// openStores opens the ledger store and, for the audit log reject mode, the
// rejected block store. Both share the leveldb database when one is used.
func openStores(config *Config) (chain, rejects core.Store, err error) {
	var db tosdb.KeyValueStore
	switch config.Store {
	case StoreFile:
		chain = chainfile.New(config.ResolvePath(config.ChainFile))
		if config.RejectMode == RejectToAuditLog {
			rejects = chainfile.New(config.ResolvePath(config.AuditLogFile))
		}
		return chain, rejects, nil
	case StoreLevelDB:
		dir := config.ResolvePath("chaindata")
		ldb, err := leveldb.New(dir, config.DatabaseCache, config.DatabaseHandles, false)
		if err != nil {
			return nil, nil, fmt.Errorf("audit: open database %s: %w", dir, err)
		}
		db = ldb
	case StoreMemory:
		db = memorydb.New()
	}
	chain = core.NewDatabaseStore(db, config.SnapshotInterval, true)
	if config.RejectMode == RejectToAuditLog {
		rejects = core.NewDatabaseStore(tosdb.NewTable(db, auditLogTable), config.SnapshotInterval, false)
	}
	return chain, rejects, nil
}

func closeStore(s core.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		log.Error("Failed to close store", "err", err)
	}
}

// Identify resolves username through the configured user table.
func (s *Service) Identify(username string) (Identity, error) {
	role, ok := s.users[username]
	if !ok || username == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnauthenticated, username)
	}
	return Identity{Username: username, Role: role}, nil
}

// Submit turns the intake of a submitter into a transaction and proposes a
// block carrying it.
func (s *Service) Submit(id Identity, in Intake) (bft.PendingView, error) {
	if err := s.authorize(id, RoleSubmitter); err != nil {
		return bft.PendingView{}, err
	}
	tx, err := in.Transaction(id.Username, s.now())
	if err != nil {
		return bft.PendingView{}, err
	}
	prop, err := s.engine.Propose(tx)
	if err != nil {
		return bft.PendingView{}, err
	}
	return prop.View(s.registry.Threshold()), nil
}

// Sign approves pending proposal pid with the validator key of the
// authority. The username of an authority is its validator identity.
func (s *Service) Sign(id Identity, pid uint64) (*bft.Result, error) {
	if err := s.authorize(id, RoleAuthority); err != nil {
		return nil, err
	}
	return s.engine.Sign(pid, id.Username)
}

// Reject finalizes pending proposal pid as rejected.
func (s *Service) Reject(id Identity, pid uint64, reason string) (*bft.Result, error) {
	if err := s.authorize(id, RoleAuthority); err != nil {
		return nil, err
	}
	return s.engine.Reject(pid, strings.TrimSpace(reason))
}

func (s *Service) authorize(id Identity, role string) error {
	if id.Username == "" {
		return ErrUnauthenticated
	}
	if id.Role != role {
		return fmt.Errorf("%w: %s is %s, need %s", ErrForbidden, id.Username, id.Role, role)
	}
	return nil
}

// Pending returns the pooled proposals, by id.
func (s *Service) Pending() []bft.PendingView { return s.engine.Pending() }

// Chain returns a copy of every ledger block.
func (s *Service) Chain() []*types.Block { return s.chain.Blocks() }

// Rejected returns the rejected blocks kept outside the ledger. It is empty
// unless RejectMode is "auditlog".
func (s *Service) Rejected() []*types.Block {
	if s.auditLog == nil {
		return nil
	}
	return s.auditLog.Blocks()
}

// IsValid reports whether the ledger hash links hold.
func (s *Service) IsValid() bool { return s.chain.IsValid() }

// Verify checks block hashes, signatures and certificates, then rewrites the
// stores so a pending persistence failure is reported too. It returns the
// identities whose historical signatures no longer verify.
func (s *Service) Verify() ([]string, error) {
	unverified, err := s.chain.VerifyDeep(s.registry)
	if ferr := s.chain.Flush(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	if s.auditLog != nil {
		if ferr := s.auditLog.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("audit log: %w", ferr))
		}
	}
	return unverified, err
}

// Validators returns the quorum members followed by the non-voting nodes.
func (s *Service) Validators() []*validator.Validator {
	return append(s.registry.Validators(), s.registry.Nodes()...)
}

// Registry returns the validator registry.
func (s *Service) Registry() *validator.Registry { return s.registry }

// BlockChain returns the ledger.
func (s *Service) BlockChain() *core.BlockChain { return s.chain }

// Config returns the configuration the service runs with.
func (s *Service) Config() Config { return s.config }

// Close flushes and closes the stores.
func (s *Service) Close() error {
	var errs []error
	if s.auditLog != nil {
		errs = append(errs, s.auditLog.Close())
	}
	errs = append(errs, s.chain.Close())
	return errors.Join(errs...)
}
